package widget

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SourceTimeKind tells how a source timestamp was obtained
type SourceTimeKind string

const (
	SourceTimeDeclared SourceTimeKind = "declared"
	SourceTimeInferred SourceTimeKind = "inferred"
	SourceTimeUnknown  SourceTimeKind = "unknown"
)

// SourceTime is when the upstream produced the data, never when it was fetched
type SourceTime struct {
	Kind   SourceTimeKind `json:"kind"`
	At     *time.Time     `json:"at,omitempty"`
	Reason string         `json:"reason,omitempty"`
}

// Declared is a timestamp published by the source itself
func Declared(at time.Time) SourceTime {
	t := at.UTC()
	return SourceTime{Kind: SourceTimeDeclared, At: &t}
}

// Inferred is a timestamp derived by a heuristic
func Inferred(at time.Time, reason string) SourceTime {
	t := at.UTC()
	return SourceTime{Kind: SourceTimeInferred, At: &t, Reason: reason}
}

// Unknown carries no timestamp, only the reason why
func Unknown(reason string) SourceTime {
	return SourceTime{Kind: SourceTimeUnknown, Reason: reason}
}

// Known reports whether a timestamp is present
func (s SourceTime) Known() bool {
	return s.At != nil
}

const (
	minAnnualYear = 1900
	maxAnnualYear = 2200
)

// InferAnnualYearEnd turns an annual period label like "2024" into Dec 31 of that year, UTC
func InferAnnualYearEnd(period string) SourceTime {
	s := strings.TrimSpace(period)
	if s == "" {
		return Unknown("source does not declare an as-of date")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Unknown(fmt.Sprintf("unrecognized period format: %s", s))
		}
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return Unknown(fmt.Sprintf("unrecognized period format: %s", s))
	}
	if y < minAnnualYear || y > maxAnnualYear {
		return Unknown(fmt.Sprintf("out-of-range year: %d", y))
	}
	return Inferred(time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC), "inferred from annual period year-end")
}

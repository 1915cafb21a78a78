package jobs

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/trade-insights/internal/widget"
)

// Params is a flat JSON object of job parameters
type Params = map[string]any

// MergeParams overlays overrides on defaults key by key
func MergeParams(defaults, overrides Params) Params {
	out := make(Params, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// AsBool coerces loose boolean spellings, falling back to def
func AsBool(v any, def bool) bool {
	switch b := v.(type) {
	case nil:
		return def
	case bool:
		return b
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	case json.Number:
		f, err := b.Float64()
		if err != nil {
			return def
		}
		return f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

// AsInt coerces v to an integer clamped to [lo, hi]; unparsable input yields def
func AsInt(v any, def, lo, hi int) int {
	n, ok := toInt(v)
	if !ok {
		return def
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int(f), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsGeoList canonicalizes a geography list against the allow-list.
// A comma separated string or a list is accepted; anything else, or a list with no
// known geography, yields every geography.
func AsGeoList(v any) []string {
	return asChoiceList(v, widget.Geos)
}

// isEmptyList reports whether v is nil, blank or a list without items
func isEmptyList(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	default:
		return false
	}
}

// AsChoiceList keeps the allowed values of v in first-seen order, or returns all of allowed
func AsChoiceList(v any, allowed []string) []string {
	return asChoiceList(v, allowed)
}

func asChoiceList(v any, allowed []string) []string {
	var items []string
	switch x := v.(type) {
	case string:
		for _, part := range strings.Split(x, ",") {
			if s := strings.TrimSpace(part); s != "" {
				items = append(items, s)
			}
		}
	case []string:
		items = x
	case []any:
		for _, it := range x {
			if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
				items = append(items, strings.TrimSpace(s))
			}
		}
	}

	canonical := make(map[string]string, len(allowed))
	for _, a := range allowed {
		canonical[strings.ToLower(a)] = a
	}

	seen := make(map[string]bool)
	var out []string
	for _, raw := range items {
		c, ok := canonical[strings.ToLower(strings.TrimSpace(raw))]
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		out = make([]string, len(allowed))
		copy(out, allowed)
	}
	return out
}

// AsChoice returns v when it is one of allowed (case-insensitive), otherwise ""
func AsChoice(v any, allowed []string) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	for _, a := range allowed {
		if strings.EqualFold(a, s) {
			return a
		}
	}
	return ""
}

const minEndYear = 1960

// AsEndYear defaults a missing end year to last year and clamps a given one to [1960, this year]
func AsEndYear(v any, now time.Time) int {
	current := now.UTC().Year()
	if v == nil {
		return current - 1
	}
	return AsInt(v, current-1, minEndYear, current)
}

func paramInt(p Params, key string, def int) int {
	n, ok := toInt(p[key])
	if !ok {
		return def
	}
	return n
}

func paramBool(p Params, key string) bool {
	return AsBool(p[key], false)
}

func paramStrings(p Params, key string) []string {
	switch x := p[key].(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, it := range x {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

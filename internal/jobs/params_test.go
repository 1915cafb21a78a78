package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAsInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{name: "nil uses default", in: nil, want: 5},
		{name: "clamped high", in: 999, want: 20},
		{name: "clamped low", in: -3, want: 2},
		{name: "float from json", in: float64(7), want: 7},
		{name: "numeric string", in: " 9 ", want: 9},
		{name: "garbage uses default", in: "abc", want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AsInt(tt.in, 5, 2, 20))
		})
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{in: true, want: true},
		{in: "yes", want: true},
		{in: "1", want: true},
		{in: "off", want: false},
		{in: float64(0), want: false},
		{in: nil, want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AsBool(tt.in, false), "%v", tt.in)
	}
}

func TestAsGeoList(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{name: "comma string", in: "india, mexico", want: []string{"India", "Mexico"}},
		{name: "list dedupes in order", in: []any{"Mexico", "India", "mexico"}, want: []string{"Mexico", "India"}},
		{name: "unknown falls back to all", in: []any{"Mars"}, want: []string{"Global", "India", "Mexico", "Singapore", "Hong Kong"}},
		{name: "missing falls back to all", in: nil, want: []string{"Global", "India", "Mexico", "Singapore", "Hong Kong"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AsGeoList(tt.in))
		})
	}
}

func TestAsEndYear(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2024, AsEndYear(nil, now))
	assert.Equal(t, 2025, AsEndYear(3000, now))
	assert.Equal(t, 1960, AsEndYear(1800, now))
	assert.Equal(t, 2010, AsEndYear("2010", now))
}

func TestMergeParams(t *testing.T) {
	defaults := Params{"years": 5, "force": false}
	merged := MergeParams(defaults, Params{"force": true, "extra": "x"})

	assert.Equal(t, Params{"years": 5, "force": true, "extra": "x"}, merged)
	assert.Equal(t, false, defaults["force"])
}

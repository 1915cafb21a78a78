package widget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferAnnualYearEnd(t *testing.T) {
	tests := []struct {
		name       string
		period     string
		wantKind   SourceTimeKind
		wantAt     *time.Time
		wantReason string
	}{
		{
			name:       "annual year",
			period:     "2024",
			wantKind:   SourceTimeInferred,
			wantAt:     ptrTime(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)),
			wantReason: "inferred from annual period year-end",
		},
		{
			name:       "padded year",
			period:     " 1999 ",
			wantKind:   SourceTimeInferred,
			wantAt:     ptrTime(time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)),
			wantReason: "inferred from annual period year-end",
		},
		{
			name:       "empty period",
			period:     "",
			wantKind:   SourceTimeUnknown,
			wantReason: "source does not declare an as-of date",
		},
		{
			name:       "quarterly label",
			period:     "2024Q3",
			wantKind:   SourceTimeUnknown,
			wantReason: "unrecognized period format: 2024Q3",
		},
		{
			name:       "year too old",
			period:     "1850",
			wantKind:   SourceTimeUnknown,
			wantReason: "out-of-range year: 1850",
		},
		{
			name:       "year too far",
			period:     "2201",
			wantKind:   SourceTimeUnknown,
			wantReason: "out-of-range year: 2201",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferAnnualYearEnd(tt.period)

			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantReason, got.Reason)
			if tt.wantAt == nil {
				assert.Nil(t, got.At)
				assert.False(t, got.Known())
				return
			}
			require.NotNil(t, got.At)
			assert.True(t, tt.wantAt.Equal(*got.At))
			assert.Equal(t, time.UTC, got.At.Location())
		})
	}
}

func TestDeclared(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	st := Declared(time.Date(2025, 3, 1, 8, 0, 0, 0, loc))

	assert.Equal(t, SourceTimeDeclared, st.Kind)
	require.NotNil(t, st.At)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *st.At)
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

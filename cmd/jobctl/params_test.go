package main

import (
	"bytes"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/jobs"
	"github.com/cuongbtq/trade-insights/internal/model"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name      string
		pairs     []string
		want      jobs.Params
		wantErr   bool
		errString string
	}{
		{
			name:  "no params",
			pairs: nil,
			want:  nil,
		},
		{
			name:  "json typed values",
			pairs: []string{"years=3", "force=true", `geo_list=["CN","US"]`, "end_year=null"},
			want: jobs.Params{
				"years":    float64(3),
				"force":    true,
				"geo_list": []any{"CN", "US"},
				"end_year": nil,
			},
		},
		{
			name:  "plain strings",
			pairs: []string{"lang=zh", "note=a=b"},
			want: jobs.Params{
				"lang": "zh",
				"note": "a=b",
			},
		},
		{
			name:  "empty value",
			pairs: []string{"scope="},
			want:  jobs.Params{"scope": ""},
		},
		{
			name:      "missing separator",
			pairs:     []string{"years"},
			wantErr:   true,
			errString: "expected key=value",
		},
		{
			name:      "empty key",
			pairs:     []string{" =3"},
			wantErr:   true,
			errString: "expected key=value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.pairs)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildTriggerMessage(t *testing.T) {
	msg, err := buildTriggerMessage(" trade_exim_5y ", []string{"years=2"})
	require.NoError(t, err)
	assert.Equal(t, domain.TriggerMessage{
		JobID:       domain.JobTradeExim5y,
		Params:      jobs.Params{"years": float64(2)},
		TriggeredBy: domain.TriggeredByManual,
	}, msg)

	_, err = buildTriggerMessage("  ", nil)
	assert.EqualError(t, err, "job id is required")
}

func TestPrintRuns(t *testing.T) {
	started := time.Date(2025, 2, 5, 9, 0, 0, 0, time.UTC)
	runs := []model.JobRun{
		{
			ID:          7,
			JobID:       domain.JobTradeCorridors,
			Status:      domain.RunStatusFailed,
			TriggeredBy: domain.TriggeredByScheduler,
			Message:     "fetch failed",
			Error:       sql.NullString{String: "http 502 Bad Gateway", Valid: true},
			StartedAt:   started,
			DurationMs:  sql.NullInt64{Int64: 1500, Valid: true},
		},
		{
			ID:          8,
			JobID:       domain.JobCleanupSnapshots,
			Status:      domain.RunStatusRunning,
			TriggeredBy: domain.TriggeredByManual,
			StartedAt:   started,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printRuns(&buf, runs))

	out := buf.String()
	assert.Contains(t, out, "http 502 Bad Gateway")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "2025-02-05T09:00:00Z")
	assert.Contains(t, out, "cleanup_snapshots")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

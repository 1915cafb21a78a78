package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/model"
	"github.com/cuongbtq/trade-insights/shared/logger"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock"), logger.NewNop().Logger), mock
}

var definitionCols = []string{
	"job_id", "name", "description", "cron_expr", "timezone", "enabled", "default_params",
	"last_scheduled_at", "last_success_at", "created_at", "updated_at",
}

var snapshotCols = []string{
	"id", "widget_key", "scope", "payload", "source", "is_stale", "fetched_at",
	"source_updated_at", "source_updated_kind", "source_updated_note", "job_run_id",
}

func TestStorage_InsertDefinitionIfAbsent(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		want         bool
	}{
		{name: "new row", rowsAffected: 1, want: true},
		{name: "existing row left alone", rowsAffected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			mock.ExpectExec(`INSERT INTO job_definitions .* ON CONFLICT \(job_id\) DO NOTHING`).
				WithArgs("trade_exim_5y", "Trade Exim 5Y by Geo", sqlmock.AnyArg(), "15 2 * * *", "Asia/Shanghai", true, sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))

			created, err := s.InsertDefinitionIfAbsent(context.Background(), &model.JobDefinition{
				JobID:         "trade_exim_5y",
				Name:          "Trade Exim 5Y by Geo",
				CronExpr:      "15 2 * * *",
				Timezone:      "Asia/Shanghai",
				Enabled:       true,
				DefaultParams: model.JSONMap{"years": 5},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, created)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_GetDefinition(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s, mock := newMockStorage(t)
		now := time.Now()

		mock.ExpectQuery(`SELECT .* FROM job_definitions WHERE job_id = \$1`).
			WithArgs("cleanup_snapshots").
			WillReturnRows(sqlmock.NewRows(definitionCols).AddRow(
				"cleanup_snapshots", "Cleanup Snapshots", "", "0 4 * * *", "Asia/Shanghai", false,
				[]byte(`{"keep_days":30}`), nil, now, now, now,
			))

		def, err := s.GetDefinition(context.Background(), "cleanup_snapshots")
		require.NoError(t, err)
		assert.False(t, def.Enabled)
		assert.Equal(t, float64(30), def.DefaultParams["keep_days"])
		assert.False(t, def.LastScheduledAt.Valid)
		assert.True(t, def.LastSuccessAt.Valid)
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectQuery(`SELECT .* FROM job_definitions`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := s.GetDefinition(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})
}

func TestStorage_UpdateDefinitionNotFound(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(`UPDATE job_definitions`).
		WithArgs("*/5 * * * *", "UTC", true, sqlmock.AnyArg(), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateDefinition(context.Background(), "ghost", DefinitionUpdate{
		CronExpr: "*/5 * * * *",
		Timezone: "UTC",
		Enabled:  true,
	})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestStorage_CreateAndFinishRun(t *testing.T) {
	s, mock := newMockStorage(t)
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)

	mock.ExpectQuery(`INSERT INTO job_runs .* RETURNING id`).
		WithArgs("trade_exim_5y", domain.RunStatusRunning, domain.TriggeredByAPI, sqlmock.AnyArg(), "", started).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	mock.ExpectExec(`UPDATE job_runs`).
		WithArgs(domain.RunStatusFailed, "job failed", sql.NullString{String: "boom", Valid: true}, finished, int64(1500), int64(42), domain.RunStatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.CreateRun(context.Background(), &model.JobRun{
		JobID:       "trade_exim_5y",
		Status:      domain.RunStatusRunning,
		TriggeredBy: domain.TriggeredByAPI,
		Params:      model.JSONMap{"years": 5},
		StartedAt:   started,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	err = s.FinishRun(context.Background(), id, RunCompletion{
		Status:     domain.RunStatusFailed,
		Message:    "job failed",
		Error:      "boom",
		FinishedAt: finished,
		DurationMs: 1500,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ListRuns(t *testing.T) {
	s, mock := newMockStorage(t)
	cursorAt := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM job_runs WHERE 1=1 AND job_id = \$1 AND status = \$2 AND \(started_at, id\) < \(\$3, \$4\) ORDER BY started_at DESC, id DESC LIMIT \$5`).
		WithArgs("trade_corridors", "success", cursorAt, int64(10), 21).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "job_id", "status", "triggered_by", "params", "message", "error",
			"started_at", "finished_at", "duration_ms",
		}).AddRow(9, "trade_corridors", "success", "scheduler", []byte(`{}`), "ok", nil, cursorAt.Add(-time.Hour), cursorAt, 12))

	runs, err := s.ListRuns(context.Background(), RunFilter{
		JobID:    "trade_corridors",
		Status:   "success",
		PageSize: 20,
		Cursor:   &RunCursor{StartedAt: cursorAt, ID: 10},
	})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(9), runs[0].ID)
	assert.Equal(t, int64(12), runs[0].DurationMs.Int64)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_DeleteRunsBeforeKeepsRunning(t *testing.T) {
	s, mock := newMockStorage(t)
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	mock.ExpectExec(`DELETE FROM job_runs WHERE started_at < \$1 AND status <> \$2`).
		WithArgs(cutoff, domain.RunStatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.DeleteRunsBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStorage_LatestSnapshot(t *testing.T) {
	t.Run("orders by fetched_at then id", func(t *testing.T) {
		s, mock := newMockStorage(t)
		fetched := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`FROM widget_snapshots\s+WHERE widget_key = \$1 AND scope = \$2\s+ORDER BY fetched_at DESC, id DESC\s+LIMIT 1`).
			WithArgs("trade_exim_5y", "India").
			WillReturnRows(sqlmock.NewRows(snapshotCols).AddRow(
				7, "trade_exim_5y", "India", []byte(`{"ok":true}`), "World Bank WDI", false, fetched,
				time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), "inferred", "inferred from annual period year-end", 3,
			))

		snap, err := s.LatestSnapshot(context.Background(), "trade_exim_5y", "India")
		require.NoError(t, err)
		assert.Equal(t, int64(7), snap.ID)
		assert.Equal(t, "inferred", snap.SourceUpdatedKind)
		assert.JSONEq(t, `{"ok":true}`, string(snap.Payload))
		assert.Equal(t, int64(3), snap.JobRunID.Int64)
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectQuery(`FROM widget_snapshots`).WillReturnError(sql.ErrNoRows)

		_, err := s.LatestSnapshot(context.Background(), "trade_exim_5y", "Mars")
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})
}

func TestStorage_LatestSnapshotsByKey(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT DISTINCT ON \(scope\)`).
		WithArgs("wealth_indicators_5y").
		WillReturnRows(sqlmock.NewRows(snapshotCols).
			AddRow(5, "wealth_indicators_5y", "India", []byte(`{}`), "", false, now, nil, "unknown", nil, nil).
			AddRow(6, "wealth_indicators_5y", "Mexico", []byte(`{}`), "", true, now, nil, "unknown", nil, nil))

	got, err := s.LatestSnapshotsByKey(context.Background(), "wealth_indicators_5y")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got["Mexico"].IsStale)
	assert.Equal(t, int64(5), got["India"].ID)
}

func TestStorage_DeleteSnapshotsBefore(t *testing.T) {
	tests := []struct {
		name           string
		preserveLatest bool
		pattern        string
	}{
		{
			name:    "plain age cutoff",
			pattern: `^DELETE FROM widget_snapshots WHERE fetched_at < \$1$`,
		},
		{
			name:           "keeps latest of each partition",
			preserveLatest: true,
			pattern:        `DELETE FROM widget_snapshots WHERE fetched_at < \$1\s+AND id NOT IN \(\s+SELECT DISTINCT ON \(widget_key, scope\) id`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			cutoff := time.Now().Add(-30 * 24 * time.Hour)

			mock.ExpectExec(tt.pattern).WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 1))

			n, err := s.DeleteSnapshotsBefore(context.Background(), cutoff, tt.preserveLatest)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_Cursor(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT value FROM batch_cursors`).WithArgs("insights:geo:en").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO batch_cursors .* ON CONFLICT \(cursor_key\) DO UPDATE`).
		WithArgs("insights:geo:en", model.JSONRaw(`{"next_index":1}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT value FROM batch_cursors`).WithArgs("insights:geo:en").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"next_index":1}`)))

	v, err := s.GetCursor(context.Background(), "insights:geo:en")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.PutCursor(context.Background(), "insights:geo:en", model.JSONRaw(`{"next_index":1}`)))

	v, err = s.GetCursor(context.Background(), "insights:geo:en")
	require.NoError(t, err)
	assert.JSONEq(t, `{"next_index":1}`, string(v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_PurgeNonGeneratedInsights(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(`DELETE FROM widget_insights WHERE generated_by <> \$1`).
		WithArgs(domain.GeneratedByLLM).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.PurgeNonGeneratedInsights(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestStorage_LatestInsightNotFound(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(`FROM widget_insights`).
		WithArgs("trade_flow", "exim", "India", "en").
		WillReturnError(sql.ErrNoRows)

	_, err := s.LatestInsight(context.Background(), "trade_flow", "exim", "India", "en")
	assert.ErrorIs(t, err, domain.ErrInsightNotFound)
}

func TestSplitStatements(t *testing.T) {
	script := `
-- comment; with a semicolon
CREATE TABLE a (x TEXT DEFAULT 'a;b');
CREATE INDEX i ON a (x);

`
	stmts := SplitStatements(script)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x TEXT DEFAULT 'a;b')", stmts[0])
	assert.Equal(t, "CREATE INDEX i ON a (x)", stmts[1])

	assert.Len(t, SplitStatements(schemaSQL), 12)
}

func TestMigrate(t *testing.T) {
	t.Run("skips objects that already exist", func(t *testing.T) {
		s, mock := newMockStorage(t)
		stmts := SplitStatements(schemaSQL)

		for i := range stmts {
			exp := mock.ExpectExec(".*")
			if i%2 == 0 {
				exp.WillReturnResult(sqlmock.NewResult(0, 0))
			} else {
				exp.WillReturnError(&pq.Error{Code: "42P07", Message: "relation already exists"})
			}
		}

		res, err := Migrate(context.Background(), s.db, s.logger)
		require.NoError(t, err)
		assert.Equal(t, len(stmts), res.Executed+res.Skipped)
		assert.Equal(t, len(stmts)/2, res.Skipped)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops on real errors", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectExec(".*").WillReturnError(errors.New("permission denied for schema public"))

		_, err := Migrate(context.Background(), s.db, s.logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to apply schema statement 1")
	})
}

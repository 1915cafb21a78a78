package handler

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cuongbtq/trade-insights/internal/api/dto"
	"github.com/cuongbtq/trade-insights/internal/model"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullTime(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := formatTime(t.Time)
	return &s
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func rawOrNull(r model.JSONRaw) json.RawMessage {
	if len(r) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(r)
}

func toJobDTO(def model.JobDefinition, next *string) dto.JobDTO {
	params := map[string]any(def.DefaultParams)
	if params == nil {
		params = map[string]any{}
	}
	return dto.JobDTO{
		JobID:           def.JobID,
		Name:            def.Name,
		Description:     def.Description,
		CronExpr:        def.CronExpr,
		Timezone:        def.Timezone,
		Enabled:         def.Enabled,
		DefaultParams:   params,
		LastScheduledAt: nullTime(def.LastScheduledAt),
		LastSuccessAt:   nullTime(def.LastSuccessAt),
		NextRunAt:       next,
		CreatedAt:       formatTime(def.CreatedAt),
		UpdatedAt:       formatTime(def.UpdatedAt),
	}
}

func toRunDTO(run model.JobRun) dto.RunDTO {
	params := map[string]any(run.Params)
	if params == nil {
		params = map[string]any{}
	}
	return dto.RunDTO{
		ID:          run.ID,
		JobID:       run.JobID,
		Status:      run.Status,
		TriggeredBy: run.TriggeredBy,
		Params:      params,
		Message:     run.Message,
		Error:       nullString(run.Error),
		StartedAt:   formatTime(run.StartedAt),
		FinishedAt:  nullTime(run.FinishedAt),
		DurationMs:  nullInt(run.DurationMs),
	}
}

func toSnapshotDTO(snap model.WidgetSnapshot) dto.SnapshotDTO {
	return dto.SnapshotDTO{
		ID:                snap.ID,
		WidgetKey:         snap.WidgetKey,
		Scope:             snap.Scope,
		Payload:           rawOrNull(snap.Payload),
		Source:            snap.Source,
		IsStale:           snap.IsStale,
		FetchedAt:         formatTime(snap.FetchedAt),
		SourceUpdatedAt:   nullTime(snap.SourceUpdatedAt),
		SourceUpdatedKind: snap.SourceUpdatedKind,
		SourceUpdatedNote: nullString(snap.SourceUpdatedNote),
		JobRunID:          nullInt(snap.JobRunID),
	}
}

func toInsightDTO(in model.WidgetInsight) dto.InsightDTO {
	return dto.InsightDTO{
		ID:                in.ID,
		CardKey:           in.CardKey,
		TabKey:            in.TabKey,
		Scope:             in.Scope,
		Lang:              in.Lang,
		Content:           in.Content,
		ReferenceList:     rawOrNull(in.ReferenceList),
		SourceUpdatedAt:   nullTime(in.SourceUpdatedAt),
		DataDigest:        in.DataDigest,
		InputSnapshotKeys: rawOrNull(in.InputSnapshotKeys),
		Provider:          nullString(in.Provider),
		Model:             nullString(in.Model),
		GeneratedBy:       in.GeneratedBy,
		CreatedAt:         formatTime(in.CreatedAt),
	}
}

package dto

import "encoding/json"

type SnapshotDTO struct {
	ID                int64           `json:"id"`
	WidgetKey         string          `json:"widget_key"`
	Scope             string          `json:"scope"`
	Payload           json.RawMessage `json:"payload"`
	Source            string          `json:"source"`
	IsStale           bool            `json:"is_stale"`
	FetchedAt         string          `json:"fetched_at"`
	SourceUpdatedAt   *string         `json:"source_updated_at"`
	SourceUpdatedKind string          `json:"source_updated_kind"`
	SourceUpdatedNote *string         `json:"source_updated_note"`
	JobRunID          *int64          `json:"job_run_id"`
}

type SnapshotsResponse struct {
	WidgetKey string                 `json:"widget_key"`
	Scopes    map[string]SnapshotDTO `json:"scopes"`
}

type InsightDTO struct {
	ID                int64           `json:"id"`
	CardKey           string          `json:"card_key"`
	TabKey            string          `json:"tab_key"`
	Scope             string          `json:"scope"`
	Lang              string          `json:"lang"`
	Content           string          `json:"content"`
	ReferenceList     json.RawMessage `json:"reference_list"`
	SourceUpdatedAt   *string         `json:"source_updated_at"`
	DataDigest        string          `json:"data_digest"`
	InputSnapshotKeys json.RawMessage `json:"input_snapshot_keys"`
	Provider          *string         `json:"provider"`
	Model             *string         `json:"model"`
	GeneratedBy       string          `json:"generated_by"`
	CreatedAt         string          `json:"created_at"`
}

type ListInsightsRequest struct {
	CardKey string `form:"card_key"`
	TabKey  string `form:"tab_key"`
	Scope   string `form:"scope"`
	Lang    string `form:"lang"`
}

type ListInsightsResponse struct {
	Insights []InsightDTO `json:"insights"`
}

type HealthResponse struct {
	Status    string       `json:"status"`
	Service   string       `json:"service"`
	Database  string       `json:"database"`
	Scheduler string       `json:"scheduler"`
	JobsOn    bool         `json:"jobs_enabled"`
	Memory    *MemoryStats `json:"memory,omitempty"`
}

type MemoryStats struct {
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

package dto

type ListRunsRequest struct {
	JobID    string `form:"job_id"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type RunDTO struct {
	ID          int64          `json:"id"`
	JobID       string         `json:"job_id"`
	Status      string         `json:"status"`
	TriggeredBy string         `json:"triggered_by"`
	Params      map[string]any `json:"params"`
	Message     string         `json:"message"`
	Error       *string        `json:"error"`
	StartedAt   string         `json:"started_at"`
	FinishedAt  *string        `json:"finished_at"`
	DurationMs  *int64         `json:"duration_ms"`
}

type ListRunsResponse struct {
	Runs       []RunDTO `json:"runs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

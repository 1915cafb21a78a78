package domain

import "time"

// RunResult is what RunNow reports to its caller
type RunResult struct {
	OK      bool   `json:"ok"`
	JobID   string `json:"job_id"`
	RunID   *int64 `json:"run_id,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// TriggerMessage asks the service to run a job, published on the trigger queue
type TriggerMessage struct {
	JobID       string         `json:"job_id"`
	Params      map[string]any `json:"params,omitempty"`
	TriggeredBy string         `json:"triggered_by,omitempty"`
	DeliveryTag uint64         `json:"-"`
}

// RunFinishedEvent is published after every finalized run
type RunFinishedEvent struct {
	EventID     string    `json:"event_id"`
	JobID       string    `json:"job_id"`
	RunID       *int64    `json:"run_id,omitempty"`
	Status      string    `json:"status"`
	TriggeredBy string    `json:"triggered_by"`
	Message     string    `json:"message"`
	Error       string    `json:"error,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
	DurationMs  int64     `json:"duration_ms"`
}

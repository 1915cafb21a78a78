package dto

type JobDTO struct {
	JobID           string         `json:"job_id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	CronExpr        string         `json:"cron_expr"`
	Timezone        string         `json:"timezone"`
	Enabled         bool           `json:"enabled"`
	DefaultParams   map[string]any `json:"default_params"`
	LastScheduledAt *string        `json:"last_scheduled_at"`
	LastSuccessAt   *string        `json:"last_success_at"`
	NextRunAt       *string        `json:"next_run_at"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

type ListJobsResponse struct {
	Jobs []JobDTO `json:"jobs"`
}

type UpdateJobRequest struct {
	CronExpr      string         `json:"cron_expr" binding:"required"`
	Timezone      string         `json:"timezone"`
	Enabled       *bool          `json:"enabled" binding:"required"`
	DefaultParams map[string]any `json:"default_params"`
}

type RunJobRequest struct {
	Params map[string]any `json:"params"`
}

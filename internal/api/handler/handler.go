package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/trade-insights/internal/jobs"
	"github.com/cuongbtq/trade-insights/internal/model"
	"github.com/cuongbtq/trade-insights/internal/storage"
)

// JobRegistry reads and edits job definitions
type JobRegistry interface {
	List(ctx context.Context) ([]model.JobDefinition, error)
	Get(ctx context.Context, jobID string) (*model.JobDefinition, error)
	Update(ctx context.Context, jobID string, req jobs.UpdateRequest) (*model.JobDefinition, error)
}

// ScheduleInspector exposes the armed triggers
type ScheduleInspector interface {
	Running() bool
	NextRunTime(jobID string) (time.Time, bool)
}

// ReadStore is the read side of the snapshot, run and insight tables
type ReadStore interface {
	ListRuns(ctx context.Context, filter storage.RunFilter) ([]model.JobRun, error)
	LatestSnapshot(ctx context.Context, widgetKey, scope string) (*model.WidgetSnapshot, error)
	LatestSnapshotsByKey(ctx context.Context, widgetKey string) (map[string]model.WidgetSnapshot, error)
	ListLatestInsights(ctx context.Context, filter storage.InsightFilter) ([]model.WidgetInsight, error)
}

// HealthChecker pings the database
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Registry  JobRegistry
	Trigger   jobs.Trigger
	Scheduler ScheduleInspector
	Store     ReadStore
	DB        HealthChecker
	// JobsEnabled reports the global kill switch; nil means enabled
	JobsEnabled func() bool
	// Memory reports host memory; nil disables the health field
	Memory MemoryReader
}

// Handler serves the jobs, runs, snapshots and insights routes
type Handler struct {
	logger      *slog.Logger
	registry    JobRegistry
	trigger     jobs.Trigger
	scheduler   ScheduleInspector
	store       ReadStore
	db          HealthChecker
	jobsEnabled func() bool
	memory      MemoryReader
}

// New creates a new Handler instance
func New(deps *Dependencies) *Handler {
	h := &Handler{
		logger:      deps.Logger,
		registry:    deps.Registry,
		trigger:     deps.Trigger,
		scheduler:   deps.Scheduler,
		store:       deps.Store,
		db:          deps.DB,
		jobsEnabled: deps.JobsEnabled,
		memory:      deps.Memory,
	}
	if h.jobsEnabled == nil {
		h.jobsEnabled = func() bool { return true }
	}
	return h
}

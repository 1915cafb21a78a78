package jobs

import (
	"context"
	"time"

	"github.com/cuongbtq/trade-insights/internal/model"
	"github.com/cuongbtq/trade-insights/internal/storage"
)

// DefinitionStore persists job definitions
type DefinitionStore interface {
	InsertDefinitionIfAbsent(ctx context.Context, def *model.JobDefinition) (bool, error)
	GetDefinition(ctx context.Context, jobID string) (*model.JobDefinition, error)
	ListDefinitions(ctx context.Context) ([]model.JobDefinition, error)
	UpdateDefinition(ctx context.Context, jobID string, upd storage.DefinitionUpdate) error
	MarkScheduled(ctx context.Context, jobID string, at time.Time) error
	MarkSucceeded(ctx context.Context, jobID string, at time.Time) error
}

// RunStore persists the run ledger
type RunStore interface {
	CreateRun(ctx context.Context, run *model.JobRun) (int64, error)
	FinishRun(ctx context.Context, runID int64, c storage.RunCompletion) error
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SnapshotStore persists widget snapshots
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, snap *model.WidgetSnapshot) (int64, error)
	CountSnapshots(ctx context.Context) (int64, error)
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time, preserveLatest bool) (int64, error)
}

// Store is everything the job pipeline persists
type Store interface {
	DefinitionStore
	RunStore
	SnapshotStore
}

var _ Store = (*storage.Storage)(nil)

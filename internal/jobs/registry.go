package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/model"
	"github.com/cuongbtq/trade-insights/internal/storage"
)

// Reloader re-arms scheduled triggers after a definition changes
type Reloader interface {
	Reload(ctx context.Context) error
}

// UpdateRequest holds the operator-editable fields of a definition
type UpdateRequest struct {
	CronExpr      string
	Timezone      string
	Enabled       bool
	DefaultParams Params
}

// Registry is the durable job catalog
type Registry struct {
	store     DefinitionStore
	catalog   *Catalog
	defaultTZ string
	logger    *slog.Logger

	mu       sync.RWMutex
	reloader Reloader
}

// NewRegistry creates a new Registry
func NewRegistry(store DefinitionStore, catalog *Catalog, defaultTZ string, logger *slog.Logger) *Registry {
	return &Registry{
		store:     store,
		catalog:   catalog,
		defaultTZ: defaultTZ,
		logger:    logger,
	}
}

// SetReloader wires the scheduler, which is built after the registry
func (r *Registry) SetReloader(reloader Reloader) {
	r.mu.Lock()
	r.reloader = reloader
	r.mu.Unlock()
}

// Catalog returns the static job table
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}

// Reconcile inserts a definition for every catalog job that has none. Existing rows are never modified.
func (r *Registry) Reconcile(ctx context.Context) error {
	for _, spec := range r.catalog.Specs() {
		tz := spec.Timezone
		if tz == "" {
			tz = r.defaultTZ
		}

		created, err := r.store.InsertDefinitionIfAbsent(ctx, &model.JobDefinition{
			JobID:         spec.ID,
			Name:          spec.Name,
			Description:   spec.Description,
			CronExpr:      spec.CronExpr,
			Timezone:      tz,
			Enabled:       true,
			DefaultParams: model.JSONMap(MergeParams(spec.DefaultParams, nil)),
		})
		if err != nil {
			return fmt.Errorf("failed to reconcile job %s: %w", spec.ID, err)
		}

		if created {
			r.logger.Info("Job definition seeded",
				slog.String("job_id", spec.ID),
				slog.String("cron_expr", spec.CronExpr),
				slog.String("timezone", tz),
			)
		}
	}
	return nil
}

// Get returns one definition
func (r *Registry) Get(ctx context.Context, jobID string) (*model.JobDefinition, error) {
	return r.store.GetDefinition(ctx, jobID)
}

// List returns every definition ordered by id
func (r *Registry) List(ctx context.Context) ([]model.JobDefinition, error) {
	return r.store.ListDefinitions(ctx)
}

// Update validates and persists a definition change, then reloads the scheduler
func (r *Registry) Update(ctx context.Context, jobID string, req UpdateRequest) (*model.JobDefinition, error) {
	// 1. Definition row and static spec must both exist
	if _, err := r.store.GetDefinition(ctx, jobID); err != nil {
		return nil, err
	}
	spec, ok := r.catalog.Get(jobID)
	if !ok {
		return nil, domain.ErrUnknownJob
	}

	// 2. Validate by building the trigger
	cronExpr := strings.TrimSpace(req.CronExpr)
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = r.defaultTZ
	}
	if _, err := ParseSchedule(cronExpr, tz); err != nil {
		return nil, &domain.InvalidScheduleError{Err: err}
	}

	// 3. Persist normalized params
	params := spec.Body.Normalize(MergeParams(req.DefaultParams, nil))
	err := r.store.UpdateDefinition(ctx, jobID, storage.DefinitionUpdate{
		CronExpr:      cronExpr,
		Timezone:      tz,
		Enabled:       req.Enabled,
		DefaultParams: model.JSONMap(params),
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Job definition updated",
		slog.String("job_id", jobID),
		slog.String("cron_expr", cronExpr),
		slog.String("timezone", tz),
		slog.Bool("enabled", req.Enabled),
	)

	// 4. Re-arm every trigger
	r.mu.RLock()
	reloader := r.reloader
	r.mu.RUnlock()
	if reloader != nil {
		if err := reloader.Reload(ctx); err != nil {
			r.logger.Error("Failed to reload scheduler after update",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
		}
	}

	return r.store.GetDefinition(ctx, jobID)
}

// IsConfigError reports whether err is a rejected request rather than an infrastructure failure
func IsConfigError(err error) bool {
	var schedErr *domain.InvalidScheduleError
	return errors.Is(err, domain.ErrJobNotFound) || errors.Is(err, domain.ErrUnknownJob) || errors.As(err, &schedErr)
}

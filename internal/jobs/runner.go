package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cuongbtq/trade-insights/internal/domain"
)

const (
	msgJobsDisabled   = "jobs are disabled by JOBS_ENABLED=false"
	msgAlreadyRunning = "job is already running"
	msgJobFailed      = "job failed"
)

// RunNotifier hears about every finalized run
type RunNotifier interface {
	RunFinished(ctx context.Context, event domain.RunFinishedEvent)
}

// Trigger starts a job run; implemented by Runner
type Trigger interface {
	RunNow(ctx context.Context, jobID string, overrides Params, triggeredBy string) (domain.RunResult, error)
}

// Runner is the single entry point that executes jobs
type Runner struct {
	registry *Registry
	locks    *LockManager
	ledger   *Ledger
	store    DefinitionStore
	enabled  func() bool
	notifier RunNotifier
	now      func() time.Time
	logger   *slog.Logger
}

// RunnerOption customizes a Runner
type RunnerOption func(*Runner)

// WithNotifier publishes run-finished events
func WithNotifier(n RunNotifier) RunnerOption {
	return func(r *Runner) { r.notifier = n }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithEnabled replaces the global kill switch
func WithEnabled(enabled func() bool) RunnerOption {
	return func(r *Runner) { r.enabled = enabled }
}

// NewRunner creates a new Runner
func NewRunner(registry *Registry, locks *LockManager, ledger *Ledger, store DefinitionStore, logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: registry,
		locks:    locks,
		ledger:   ledger,
		store:    store,
		enabled:  func() bool { return true },
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enabled reports the global kill switch
func (r *Runner) Enabled() bool {
	return r.enabled()
}

func (r *Runner) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

// RunNow executes a job immediately on the calling goroutine.
// Job failures are reported in the result; the returned error is reserved for
// infrastructure failures before a run row exists.
func (r *Runner) RunNow(ctx context.Context, jobID string, overrides Params, triggeredBy string) (domain.RunResult, error) {
	// 1. Unknown job
	spec, ok := r.registry.Catalog().Get(jobID)
	if !ok {
		return domain.RunResult{OK: false, JobID: jobID, Status: domain.RunStatusFailed, Error: domain.ErrUnknownJob.Error()}, nil
	}

	// 2. Global kill switch
	if !r.enabled() {
		return domain.RunResult{OK: false, JobID: jobID, Status: domain.RunStatusSkipped, Message: msgJobsDisabled}, nil
	}

	// 3. Trigger source
	triggeredBy = domain.NormalizeTriggeredBy(triggeredBy)

	// 4. Non-blocking lock; contention is a skip, never a queue
	if !r.locks.TryAcquire(jobID) {
		r.logger.Info("Job run skipped, already running",
			slog.String("job_id", jobID),
			slog.String("triggered_by", triggeredBy),
		)
		return domain.RunResult{OK: false, JobID: jobID, Status: domain.RunStatusSkipped, Message: msgAlreadyRunning}, nil
	}
	defer r.locks.Release(jobID)

	// Runs are never cancelled mid-flight
	ctx = context.WithoutCancel(ctx)

	// 5. Resolve params and open the run
	started := r.timestamp()
	if err := r.registry.Reconcile(ctx); err != nil {
		return r.failBeforeRun(jobID, err)
	}
	def, err := r.registry.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return domain.RunResult{}, fmt.Errorf("job definition not found after reconcile: %s", jobID)
		}
		return r.failBeforeRun(jobID, err)
	}

	params := spec.Body.Normalize(MergeParams(def.DefaultParams, overrides))
	runID, err := r.ledger.Open(ctx, jobID, triggeredBy, params, started)
	if err != nil {
		return r.failBeforeRun(jobID, err)
	}
	if err := r.store.MarkScheduled(ctx, jobID, started); err != nil {
		r.logger.Warn("Failed to mark job scheduled", slog.String("job_id", jobID), slog.Any("error", err))
	}

	r.logger.Info("Job run started",
		slog.String("job_id", jobID),
		slog.Int64("run_id", runID),
		slog.String("triggered_by", triggeredBy),
	)

	// 6. Execute
	status, message, errText := r.execute(ctx, spec, params, runID)
	if status == domain.RunStatusSuccess {
		if err := r.store.MarkSucceeded(ctx, jobID, r.timestamp()); err != nil {
			r.logger.Warn("Failed to mark job succeeded", slog.String("job_id", jobID), slog.Any("error", err))
		}
	}

	// 7. Finalize, always
	completion, err := r.ledger.Close(ctx, runID, status, message, errText, started, r.timestamp())
	if err != nil {
		r.logger.Error("Failed to finalize job run",
			slog.String("job_id", jobID),
			slog.Int64("run_id", runID),
			slog.Any("error", err),
		)
	}

	logAttrs := []any{
		slog.String("job_id", jobID),
		slog.Int64("run_id", runID),
		slog.String("status", status),
		slog.Int64("duration_ms", completion.DurationMs),
	}
	if status == domain.RunStatusSuccess {
		r.logger.Info("Job run finished", append(logAttrs, slog.String("message", message))...)
	} else {
		r.logger.Error("Job run failed", append(logAttrs, slog.String("error", errText))...)
	}

	result := domain.RunResult{
		OK:      status == domain.RunStatusSuccess,
		JobID:   jobID,
		RunID:   &runID,
		Status:  status,
		Message: message,
		Error:   errText,
	}

	if r.notifier != nil {
		r.notifier.RunFinished(ctx, domain.RunFinishedEvent{
			JobID:       jobID,
			RunID:       &runID,
			Status:      status,
			TriggeredBy: triggeredBy,
			Message:     message,
			Error:       errText,
			FinishedAt:  completion.FinishedAt,
			DurationMs:  completion.DurationMs,
		})
	}

	return result, nil
}

// execute runs the body, absorbing errors and panics
func (r *Runner) execute(ctx context.Context, spec JobSpec, params Params, runID int64) (status, message, errText string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Job body panicked",
				slog.String("job_id", spec.ID),
				slog.Int64("run_id", runID),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			status, message, errText = domain.RunStatusFailed, msgJobFailed, fmt.Sprint(rec)
		}
	}()

	msg, err := spec.Body.Execute(ctx, params, runID)
	if err != nil {
		return domain.RunStatusFailed, msgJobFailed, err.Error()
	}
	return domain.RunStatusSuccess, msg, ""
}

func (r *Runner) failBeforeRun(jobID string, err error) (domain.RunResult, error) {
	r.logger.Error("Job run could not start",
		slog.String("job_id", jobID),
		slog.Any("error", err),
	)
	return domain.RunResult{OK: false, JobID: jobID, Status: domain.RunStatusFailed, Message: msgJobFailed, Error: err.Error()}, err
}

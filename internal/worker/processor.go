package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/trade-insights/internal/domain"
)

// processTrigger runs the requested job. Job failures and skips are settled as success:
// the run row already records them and runs are never retried automatically.
func (w *Worker) processTrigger(ctx context.Context, task *triggerTask) error {
	msg := task.msg

	w.logger.Info("Processing trigger",
		slog.String("job_id", msg.JobID),
		slog.String("triggered_by", msg.TriggeredBy),
		slog.String("worker_id", w.workerID),
	)

	res, err := w.trigger.RunNow(ctx, msg.JobID, msg.Params, msg.TriggeredBy)
	if err != nil {
		// no run row was written
		return domain.NewRetryableError(fmt.Errorf("failed to start job %s: %w", msg.JobID, err))
	}
	if !res.OK && res.RunID == nil && res.Error == domain.ErrUnknownJob.Error() {
		return fmt.Errorf("%w: %s", domain.ErrUnknownJob, msg.JobID)
	}

	attrs := []any{
		slog.String("job_id", msg.JobID),
		slog.String("status", res.Status),
	}
	if res.RunID != nil {
		attrs = append(attrs, slog.Int64("run_id", *res.RunID))
	}
	w.logger.Info("Trigger processed", attrs...)
	return nil
}

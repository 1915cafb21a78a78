package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/trade-insights/internal/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned",
		slog.Int("worker_count", w.concurrency),
		slog.String("worker_id", w.workerID),
	)
}

// workerLoop processes tasks until the dispatcher closes jobsChan or Stop is called
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)

	for {
		select {
		case <-w.stopChan:
			w.logger.Debug("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case task, ok := <-w.jobsChan:
			if !ok {
				return
			}
			w.settle(workerName, task, w.processTrigger(ctx, task))
		}
	}
}

// settle acks or nacks the delivery of task
func (w *Worker) settle(workerName string, task *triggerTask, err error) {
	attrs := []any{
		slog.String("worker_name", workerName),
		slog.String("job_id", task.msg.JobID),
		slog.Uint64("delivery_tag", task.msg.DeliveryTag),
	}

	if err == nil {
		if ackErr := task.delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK message", append(attrs, slog.Any("error", ackErr))...)
		}
		return
	}

	requeue := shouldRequeue(err, task.delivery.Redelivered)
	w.logger.Error("Trigger processing failed", append(attrs, slog.Any("error", err), slog.Bool("requeue", requeue))...)
	if nackErr := task.delivery.Nack(false, requeue); nackErr != nil {
		w.logger.Error("Failed to NACK message", append(attrs, slog.Any("error", nackErr))...)
	}
}

// shouldRequeue requeues a retryable failure once; redeliveries go to the DLQ
func shouldRequeue(err error, redelivered bool) bool {
	if errors.Is(err, domain.ErrInvalidPayload) || errors.Is(err, domain.ErrUnknownJob) {
		return false
	}
	var retryableErr *domain.RetryableError
	if errors.As(err, &retryableErr) {
		return !redelivered
	}
	return false
}

// Package worker consumes job trigger messages from RabbitMQ and runs them through the job runner.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/trade-insights/internal/jobs"
)

// DeliverySource is the consuming side of the RabbitMQ client
type DeliverySource interface {
	Qos(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Source        DeliverySource
	Trigger       jobs.Trigger
	Concurrency   int
	PrefetchCount int
	QueueName     string
}

// Worker dispatches trigger messages to a fixed pool of goroutines
type Worker struct {
	logger        *slog.Logger
	source        DeliverySource
	trigger       jobs.Trigger
	concurrency   int
	prefetchCount int
	queueName     string
	workerID      string

	jobsChan chan *triggerTask
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}
	return &Worker{
		logger:        cfg.Logger,
		source:        cfg.Source,
		trigger:       cfg.Trigger,
		concurrency:   concurrency,
		prefetchCount: prefetch,
		queueName:     cfg.QueueName,
		workerID:      "dashboard-" + uuid.NewString()[:8],
		jobsChan:      make(chan *triggerTask),
		stopChan:      make(chan struct{}),
	}
}

// Start consumes until ctx is canceled or the delivery channel closes, then drains the pool
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	close(w.jobsChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped", slog.String("worker_id", w.workerID))
	return nil
}

// Stop asks idle pool goroutines to exit; in-flight runs finish first
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")
		close(w.stopChan)
	})
}

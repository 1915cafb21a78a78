package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/jobs"
	"github.com/cuongbtq/trade-insights/shared/rabbitmq"
)

const (
	eventRunFinished   = "job.run.finished"
	eventPublishBudget = 5 * time.Second
)

// Publisher is the publishing side of the RabbitMQ client
type Publisher interface {
	PublishWithRetry(ctx context.Context, msg rabbitmq.Message) error
}

// EventPublisher announces finalized runs on the events routing key
type EventPublisher struct {
	publisher  Publisher
	routingKey string
	logger     *slog.Logger
}

// NewEventPublisher creates a new EventPublisher
func NewEventPublisher(publisher Publisher, routingKey string, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{publisher: publisher, routingKey: routingKey, logger: logger}
}

// RunFinished publishes the event; failures are logged and never reach the run
func (p *EventPublisher) RunFinished(ctx context.Context, event domain.RunFinishedEvent) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to encode run event", slog.String("job_id", event.JobID), slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, eventPublishBudget)
	defer cancel()

	err = p.publisher.PublishWithRetry(ctx, rabbitmq.Message{
		RoutingKey:  p.routingKey,
		ContentType: "application/json",
		Type:        eventRunFinished,
		Body:        body,
	})
	if err != nil {
		p.logger.Warn("Failed to publish run event",
			slog.String("job_id", event.JobID),
			slog.String("event_id", event.EventID),
			slog.Any("error", err),
		)
	}
}

var _ jobs.RunNotifier = (*EventPublisher)(nil)

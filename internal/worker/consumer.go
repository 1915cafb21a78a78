package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/trade-insights/internal/domain"
)

// triggerTask is a decoded trigger message with the delivery to settle
type triggerTask struct {
	msg      domain.TriggerMessage
	delivery amqp.Delivery
}

// setupConsumer sets QoS and returns the delivery channel
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	if err := w.source.Qos(w.prefetchCount); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	w.logger.Info("RabbitMQ QoS configured",
		slog.Int("prefetch_count", w.prefetchCount),
	)

	deliveries, err := w.source.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.String("queue", w.queueName),
	)

	return deliveries, nil
}

// decodeTrigger parses a delivery body. Run-finished events and a missing job_id are rejected here.
func decodeTrigger(msgType string, body []byte) (domain.TriggerMessage, error) {
	var msg domain.TriggerMessage
	if msgType == eventRunFinished {
		return msg, fmt.Errorf("%w: %s is an event, not a trigger", domain.ErrInvalidPayload, msgType)
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	msg.JobID = strings.TrimSpace(msg.JobID)
	if msg.JobID == "" {
		return msg, fmt.Errorf("%w: job_id is required", domain.ErrInvalidPayload)
	}
	if msg.TriggeredBy == "" {
		msg.TriggeredBy = domain.TriggeredByAPI
	}
	return msg, nil
}

// startMessageDispatcher listens to RabbitMQ deliveries and hands them to the worker pool
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case <-w.stopChan:
			w.logger.Info("Message dispatcher stopped - worker stopping")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			msg, err := decodeTrigger(delivery.Type, delivery.Body)
			if err != nil {
				w.logger.Error("Rejecting malformed trigger message",
					slog.Any("error", err),
					slog.String("body", string(delivery.Body)),
				)
				// malformed messages go to the DLQ, if one is bound
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message", slog.Any("error", nackErr))
				}
				continue
			}
			msg.DeliveryTag = delivery.DeliveryTag

			select {
			case w.jobsChan <- &triggerTask{msg: msg, delivery: delivery}:
				w.logger.Debug("Trigger dispatched to worker pool",
					slog.String("job_id", msg.JobID),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching")
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown", slog.Any("error", nackErr))
				}
				return
			case <-w.stopChan:
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown", slog.Any("error", nackErr))
				}
				return
			}
		}
	}
}

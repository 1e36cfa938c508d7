package consumer

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"fotolio/internal/gateway"
	"fotolio/internal/services"
	"fotolio/pkg/utils"
)

// EventConsumer drains the relay queue that mirrors gateway webhooks. The
// relay feeds the same reconciler as the HTTP webhook endpoint, so a
// delivery seen on both paths settles exactly once.
type EventConsumer struct {
	channel    *amqp.Channel
	queue      string
	reconciler services.ReconcilerServiceInterface
	logger     *zap.Logger
}

func NewEventConsumer(channel *amqp.Channel, queue string, reconciler services.ReconcilerServiceInterface, logger *zap.Logger) *EventConsumer {
	return &EventConsumer{
		channel:    channel,
		queue:      queue,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Start consumes until ctx is canceled or the channel closes. It runs the
// delivery loop on its own goroutine and returns immediately.
func (c *EventConsumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.Consume(c.queue, "fotolio-reconciler", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					c.logger.Warn("rabbit delivery channel closed")
					return
				}
				c.handle(ctx, delivery)
			}
		}
	}()

	c.logger.Info("gateway event consumer started", zap.String("queue", c.queue))
	return nil
}

func (c *EventConsumer) handle(ctx context.Context, delivery amqp.Delivery) {
	events, err := gateway.DecodeRelayPayload(delivery.Body)
	if err != nil {
		// Malformed payloads never become parseable; requeueing would
		// loop forever.
		c.logger.Error("undecodable relay payload", zap.Error(err))
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			c.logger.Error("nack failed", zap.Error(nackErr))
		}
		return
	}

	result := c.reconciler.ProcessBatch(ctx, events)
	if err := result.Err(); err != nil {
		requeue := shouldRequeue(result.Failed)
		c.logger.Error("relay batch settlement failed",
			zap.Int("processed", result.Processed),
			zap.Int("failed", len(result.Failed)),
			zap.Bool("requeue", requeue),
			zap.Error(err))
		if nackErr := delivery.Nack(false, requeue); nackErr != nil {
			c.logger.Error("nack failed", zap.Error(nackErr))
		}
		return
	}

	if err := delivery.Ack(false); err != nil {
		c.logger.Error("ack failed", zap.Error(err))
	}
}

// shouldRequeue separates transient failures from permanent ones. An event
// pointing at a transaction that does not exist fails identically on every
// redelivery, so requeueing it only spins the queue.
func shouldRequeue(failed []services.FailedEvent) bool {
	for _, failure := range failed {
		if !errors.Is(failure.Err, utils.ErrTransactionNotFound) {
			return true
		}
	}
	return false
}

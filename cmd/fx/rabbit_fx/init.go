package rabbit_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"fotolio/internal/config"
	"fotolio/internal/consumer"
	"fotolio/internal/infra"
	"fotolio/internal/services"
)

var Module = fx.Provide(provideEventConsumer)

// provideEventConsumer returns nil when no broker is configured; the relay
// path is optional and the webhook endpoint alone is a complete deployment.
func provideEventConsumer(
	lc fx.Lifecycle,
	cfg *config.Config,
	reconciler services.ReconcilerServiceInterface,
	logger *zap.Logger,
) (*consumer.EventConsumer, error) {
	if cfg.Rabbit.URL == "" {
		logger.Info("rabbit not configured, relay consumer disabled")
		return nil, nil
	}

	conn, channel, err := infra.DialRabbit(cfg.Rabbit)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			channel.Close()
			return conn.Close()
		},
	})

	return consumer.NewEventConsumer(channel, cfg.Rabbit.Queue, reconciler, logger), nil
}

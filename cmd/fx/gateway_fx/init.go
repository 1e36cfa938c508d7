package gateway_fx

import (
	"go.uber.org/fx"

	"fotolio/internal/config"
	"fotolio/internal/gateway"
)

var Module = fx.Provide(provideGatewayClient)

func provideGatewayClient(cfg *config.Config) (gateway.Client, error) {
	return gateway.NewStripeClient(cfg.Stripe)
}

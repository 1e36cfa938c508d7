package wallet_fx

import (
	"go.uber.org/fx"

	"fotolio/internal/api/controllers"
	"fotolio/internal/services"
)

var Module = fx.Provide(
	services.NewWalletService,
	controllers.NewWalletController,
)

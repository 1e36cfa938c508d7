package transaction_fx

import (
	"go.uber.org/fx"

	"fotolio/internal/api/controllers"
	"fotolio/internal/repositories"
	"fotolio/internal/services"
)

var Module = fx.Provide(
	repositories.NewTransactionRepository,
	services.NewTransactionService,
	controllers.NewTransactionController,
)

package reconciler_fx

import (
	"go.uber.org/fx"

	"fotolio/internal/repositories"
	"fotolio/internal/services"
)

var Module = fx.Provide(
	repositories.NewPaymentAuditRepository,
	services.NewReconcilerService,
)

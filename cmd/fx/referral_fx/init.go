package referral_fx

import (
	"go.uber.org/fx"

	"fotolio/internal/repositories"
	"fotolio/internal/services"
)

var Module = fx.Provide(
	repositories.NewReferralRepository,
	services.NewReferralService,
)

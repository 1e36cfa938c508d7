package reaper_fx

import (
	"go.uber.org/fx"

	"fotolio/internal/services"
)

var Module = fx.Provide(services.NewReaperService)

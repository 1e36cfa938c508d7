package config_fx

import (
	"go.uber.org/fx"

	"fotolio/internal/config"
)

var Module = fx.Provide(config.Load)

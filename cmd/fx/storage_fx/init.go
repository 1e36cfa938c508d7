package storage_fx

import (
	"go.uber.org/fx"

	"fotolio/internal/config"
	"fotolio/internal/infra"
)

var Module = fx.Provide(provideObjectStore)

func provideObjectStore(cfg *config.Config) (infra.ObjectStore, error) {
	return infra.NewObjectStore(cfg.ObjectStore)
}

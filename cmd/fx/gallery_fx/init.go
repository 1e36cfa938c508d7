package gallery_fx

import (
	"go.uber.org/fx"

	"fotolio/internal/api/controllers"
	"fotolio/internal/repositories"
)

var Module = fx.Provide(
	repositories.NewGalleryRepository,
	repositories.NewGalleryAssetRepository,
	repositories.NewPlanRepository,
	controllers.NewGalleryController,
	controllers.NewPlanController,
)

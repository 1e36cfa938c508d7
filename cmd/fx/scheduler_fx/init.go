package scheduler_fx

import (
	"go.uber.org/fx"

	"fotolio/internal/repositories"
	"fotolio/internal/services"
	"fotolio/internal/worker"
)

var Module = fx.Provide(
	repositories.NewScheduledJobRepository,
	services.NewSchedulerService,
	worker.NewSchedulerWorker,
)

package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fotolio/internal/repositories"
)

// ExpiryJobName derives the deterministic job name for a gallery, so
// scheduling twice updates one job and cancellation needs no lookup.
func ExpiryJobName(galleryID uuid.UUID) string {
	return fmt.Sprintf("gallery-expiry-%s", galleryID)
}

type SchedulerServiceInterface interface {
	ScheduleExpiry(ctx context.Context, galleryID uuid.UUID, runAt int64) error
	// CancelExpiry is idempotent; an absent schedule is not an error.
	CancelExpiry(ctx context.Context, galleryID uuid.UUID) error
}

type schedulerService struct {
	repo   repositories.IScheduledJobRepository
	logger *zap.Logger
}

func NewSchedulerService(repo repositories.IScheduledJobRepository, logger *zap.Logger) SchedulerServiceInterface {
	return &schedulerService{repo: repo, logger: logger}
}

func (s *schedulerService) ScheduleExpiry(ctx context.Context, galleryID uuid.UUID, runAt int64) error {
	if err := s.repo.Upsert(ctx, ExpiryJobName(galleryID), galleryID, runAt); err != nil {
		return err
	}
	s.logger.Info("expiry job scheduled",
		zap.String("gallery_id", galleryID.String()),
		zap.Int64("run_at", runAt))
	return nil
}

func (s *schedulerService) CancelExpiry(ctx context.Context, galleryID uuid.UUID) error {
	return s.repo.CancelByName(ctx, ExpiryJobName(galleryID))
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fotolio/internal/models/db_models"
	"fotolio/internal/repositories"
	"fotolio/pkg/utils"
)

// settlementEffects applies the gallery-side consequences of a settled
// purchase. Both the wallet-only checkout path and the reconciler converge
// here so the two paths cannot drift.
type settlementEffects struct {
	galleryRepo repositories.IGalleryRepository
	planRepo    repositories.IPlanRepository
	assetRepo   repositories.IGalleryAssetRepository
	scheduler   SchedulerServiceInterface
	logger      *zap.Logger
}

// activateGallery moves the gallery to active with the plan's expiry and
// storage limits, re-arms the expiry job, and creates the default order
// when the gallery has no client-selection workflow.
func (e *settlementEffects) activateGallery(ctx context.Context, galleryID, ownerID uuid.UUID) error {
	gallery, err := e.galleryRepo.GetByID(ctx, galleryID)
	if err != nil {
		return err
	}
	if gallery == nil {
		return utils.ErrGalleryNotFound
	}

	plan, err := e.planRepo.GetPlanByCode(ctx, gallery.PlanCode)
	if err != nil {
		return err
	}
	if plan == nil {
		return utils.ErrPlanNotFound
	}

	expiresAt := time.Now().AddDate(0, 0, int(plan.DurationDays)).Unix()
	if err := e.galleryRepo.Activate(ctx, galleryID, expiresAt, plan.StorageLimitBytes); err != nil {
		return err
	}

	if err := e.scheduler.ScheduleExpiry(ctx, galleryID, expiresAt); err != nil {
		// Activation stands; the sweep catches galleries whose job was lost.
		e.logger.Warn("schedule expiry after activation failed",
			zap.String("gallery_id", galleryID.String()), zap.Error(err))
	}

	if !gallery.ClientSelectionEnabled {
		existing, err := e.assetRepo.FindOrderForGallery(ctx, galleryID)
		if err != nil {
			return err
		}
		if existing == nil {
			order := &db_models.Order{
				GalleryID: galleryID,
				OwnerID:   ownerID,
				Status:    db_models.OrderStatusOpen,
			}
			if err := e.assetRepo.CreateOrder(ctx, order); err != nil {
				return err
			}
		}
	}

	e.logger.Info("gallery activated",
		zap.String("gallery_id", galleryID.String()),
		zap.Int64("expires_at", expiresAt))
	return nil
}

// releaseLock clears the payment lock after a failed or abandoned checkout.
func (e *settlementEffects) releaseLock(ctx context.Context, galleryID uuid.UUID) error {
	return e.galleryRepo.ReleasePaymentLock(ctx, galleryID)
}

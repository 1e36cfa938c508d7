package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fotolio/internal/models/db_models"
)

type IGalleryRepository interface {
	GetByID(ctx context.Context, galleryID uuid.UUID) (*db_models.Gallery, error)
	// Activate flips the gallery into its paid state with the limits the
	// purchased plan grants.
	Activate(ctx context.Context, galleryID uuid.UUID, expiresAt int64, storageLimitBytes int64) error
	SetPaymentLock(ctx context.Context, galleryID uuid.UUID, locked bool, state db_models.GalleryState) error
	ReleasePaymentLock(ctx context.Context, galleryID uuid.UUID) error
	HardDelete(ctx context.Context, galleryID uuid.UUID) error
}

type GalleryRepository struct {
	db *gorm.DB
}

func NewGalleryRepository(db *gorm.DB) IGalleryRepository {
	return &GalleryRepository{db: db}
}

func (r *GalleryRepository) GetByID(ctx context.Context, galleryID uuid.UUID) (*db_models.Gallery, error) {
	var gallery db_models.Gallery
	err := r.db.WithContext(ctx).First(&gallery, "id = ?", galleryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &gallery, nil
}

func (r *GalleryRepository) Activate(ctx context.Context, galleryID uuid.UUID, expiresAt int64, storageLimitBytes int64) error {
	return r.db.WithContext(ctx).
		Model(&db_models.Gallery{}).
		Where("id = ?", galleryID).
		Updates(map[string]interface{}{
			"state":               db_models.GalleryStateActive,
			"payment_locked":      false,
			"expires_at":          expiresAt,
			"storage_limit_bytes": storageLimitBytes,
		}).Error
}

func (r *GalleryRepository) SetPaymentLock(ctx context.Context, galleryID uuid.UUID, locked bool, state db_models.GalleryState) error {
	return r.db.WithContext(ctx).
		Model(&db_models.Gallery{}).
		Where("id = ?", galleryID).
		Updates(map[string]interface{}{
			"payment_locked": locked,
			"state":          state,
		}).Error
}

func (r *GalleryRepository) ReleasePaymentLock(ctx context.Context, galleryID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&db_models.Gallery{}).
		Where("id = ? AND payment_locked = ?", galleryID, true).
		Updates(map[string]interface{}{
			"payment_locked": false,
			"state":          db_models.GalleryStateDraft,
		}).Error
}

func (r *GalleryRepository) HardDelete(ctx context.Context, galleryID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Delete(&db_models.Gallery{}, "id = ?", galleryID).Error
}

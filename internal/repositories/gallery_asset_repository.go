package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fotolio/internal/models/db_models"
)

type IGalleryAssetRepository interface {
	// DeleteImageBatch removes up to limit image rows for the gallery and
	// reports how many went; callers loop until zero.
	DeleteImageBatch(ctx context.Context, galleryID uuid.UUID, limit int) (int64, error)
	DeleteOrders(ctx context.Context, galleryID uuid.UUID) (int64, error)
	CreateOrder(ctx context.Context, order *db_models.Order) error
	FindOrderForGallery(ctx context.Context, galleryID uuid.UUID) (*db_models.Order, error)
}

type GalleryAssetRepository struct {
	db *gorm.DB
}

func NewGalleryAssetRepository(db *gorm.DB) IGalleryAssetRepository {
	return &GalleryAssetRepository{db: db}
}

func (r *GalleryAssetRepository) DeleteImageBatch(ctx context.Context, galleryID uuid.UUID, limit int) (int64, error) {
	// Subquery keeps the delete bounded; gorm has no LIMIT on DELETE across
	// all dialects.
	subquery := r.db.WithContext(ctx).
		Model(&db_models.GalleryImage{}).
		Select("id").
		Where("gallery_id = ?", galleryID).
		Limit(limit)
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("id IN (?)", subquery).
		Delete(&db_models.GalleryImage{})
	return result.RowsAffected, result.Error
}

func (r *GalleryAssetRepository) DeleteOrders(ctx context.Context, galleryID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("gallery_id = ?", galleryID).
		Delete(&db_models.Order{})
	return result.RowsAffected, result.Error
}

func (r *GalleryAssetRepository) CreateOrder(ctx context.Context, order *db_models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GalleryAssetRepository) FindOrderForGallery(ctx context.Context, galleryID uuid.UUID) (*db_models.Order, error) {
	var order db_models.Order
	err := r.db.WithContext(ctx).
		Where("gallery_id = ?", galleryID).
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

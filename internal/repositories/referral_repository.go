package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fotolio/internal/models/db_models"
)

type IReferralRepository interface {
	// InsertMark writes an idempotency marker; false means it was already
	// there and the caller should treat the event as seen.
	InsertMark(ctx context.Context, referrerID uuid.UUID, kind db_models.ReferralMarkKind, key uuid.UUID) (bool, error)
	GetOrCreateState(ctx context.Context, userID uuid.UUID) (*db_models.ReferralState, error)
	// IncrementSuccess bumps the counter atomically in SQL and returns
	// the post-increment value, so concurrent grants cannot lose updates.
	IncrementSuccess(ctx context.Context, userID uuid.UUID) (int, error)
	AwardBadge(ctx context.Context, userID uuid.UUID) error
	CreateCode(ctx context.Context, code *db_models.EarnedDiscountCode) error
	FindCode(ctx context.Context, userID uuid.UUID, code string) (*db_models.EarnedDiscountCode, error)
	// MarkCodeUsed is conditional on the code being unused; returns rows
	// affected so redeeming twice is detectable.
	MarkCodeUsed(ctx context.Context, code string, galleryID uuid.UUID) (int64, error)
}

type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) IReferralRepository {
	return &ReferralRepository{db: db}
}

func (r *ReferralRepository) InsertMark(ctx context.Context, referrerID uuid.UUID, kind db_models.ReferralMarkKind, key uuid.UUID) (bool, error) {
	mark := db_models.ReferralMark{
		ReferrerID: referrerID,
		Kind:       kind,
		Key:        key,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&mark)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ReferralRepository) GetOrCreateState(ctx context.Context, userID uuid.UUID) (*db_models.ReferralState, error) {
	var state db_models.ReferralState
	err := r.db.WithContext(ctx).
		Where(db_models.ReferralState{UserID: userID}).
		FirstOrCreate(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *ReferralRepository) IncrementSuccess(ctx context.Context, userID uuid.UUID) (int, error) {
	var state db_models.ReferralState
	result := r.db.WithContext(ctx).
		Model(&state).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "success_count"}}}).
		Where("user_id = ?", userID).
		Update("success_count", gorm.Expr("success_count + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return state.SuccessCount, nil
}

func (r *ReferralRepository) AwardBadge(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&db_models.ReferralState{}).
		Where("user_id = ?", userID).
		Update("badge_earned", true).Error
}

func (r *ReferralRepository) CreateCode(ctx context.Context, code *db_models.EarnedDiscountCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *ReferralRepository) FindCode(ctx context.Context, userID uuid.UUID, code string) (*db_models.EarnedDiscountCode, error) {
	var earned db_models.EarnedDiscountCode
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND code = ?", userID, code).
		First(&earned).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &earned, nil
}

func (r *ReferralRepository) MarkCodeUsed(ctx context.Context, code string, galleryID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&db_models.EarnedDiscountCode{}).
		Where("code = ? AND used = ?", code, false).
		Updates(map[string]interface{}{
			"used":       true,
			"gallery_id": galleryID,
		})
	return result.RowsAffected, result.Error
}

package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fotolio/internal/models/db_models"
)

type IPaymentAuditRepository interface {
	Exists(ctx context.Context, paymentID string) (bool, error)
	// Record inserts the dedup row; returns false when the payment id was
	// already recorded by an earlier delivery.
	Record(ctx context.Context, paymentID string, transactionID uuid.UUID, eventType string, processedAt int64) (bool, error)
}

type PaymentAuditRepository struct {
	db *gorm.DB
}

func NewPaymentAuditRepository(db *gorm.DB) IPaymentAuditRepository {
	return &PaymentAuditRepository{db: db}
}

func (r *PaymentAuditRepository) Exists(ctx context.Context, paymentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db_models.PaymentAudit{}).
		Where("payment_id = ?", paymentID).
		Count(&count).Error
	return count > 0, err
}

func (r *PaymentAuditRepository) Record(ctx context.Context, paymentID string, transactionID uuid.UUID, eventType string, processedAt int64) (bool, error) {
	audit := db_models.PaymentAudit{
		PaymentID:     paymentID,
		TransactionID: transactionID,
		EventType:     eventType,
		ProcessedAt:   processedAt,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&audit)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fotolio/internal/models/db_models"
)

type TransactionFilter struct {
	Status db_models.TransactionStatus
	Type   db_models.TransactionType
}

type ITransactionRepository interface {
	Create(ctx context.Context, txn *db_models.Transaction) error
	GetByOwnerAndID(ctx context.Context, ownerID, txnID uuid.UUID) (*db_models.Transaction, error)
	// UpdateStatus performs the conditional transition: rows are touched only
	// when the stored status still equals from. Returns rows affected.
	UpdateStatus(ctx context.Context, ownerID, txnID uuid.UUID, from, to db_models.TransactionStatus, stamps map[string]interface{}) (int64, error)
	SetCheckoutSession(ctx context.Context, txnID uuid.UUID, sessionID string) error
	FindByGalleryAndStatus(ctx context.Context, galleryID uuid.UUID, status db_models.TransactionStatus) (*db_models.Transaction, error)
	FindByOwnerAndGallery(ctx context.Context, ownerID, galleryID uuid.UUID, status db_models.TransactionStatus) (*db_models.Transaction, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, filter TransactionFilter, page, pageSize int) ([]db_models.Transaction, int64, error)
	CountPaidByOwnerAndType(ctx context.Context, ownerID uuid.UUID, txnType db_models.TransactionType) (int64, error)
	FindStaleUnpaid(ctx context.Context, txnType db_models.TransactionType, createdBefore int64, limit int) ([]db_models.Transaction, error)
}

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) ITransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *db_models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *TransactionRepository) GetByOwnerAndID(ctx context.Context, ownerID, txnID uuid.UUID) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, txnID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, ownerID, txnID uuid.UUID, from, to db_models.TransactionStatus, stamps map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": to}
	for column, value := range stamps {
		updates[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&db_models.Transaction{}).
		Where("owner_id = ? AND id = ? AND status = ?", ownerID, txnID, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *TransactionRepository) SetCheckoutSession(ctx context.Context, txnID uuid.UUID, sessionID string) error {
	return r.db.WithContext(ctx).
		Model(&db_models.Transaction{}).
		Where("id = ?", txnID).
		Update("checkout_session_id", sessionID).Error
}

// FindByGalleryAndStatus is the fast, index-backed lookup.
func (r *TransactionRepository) FindByGalleryAndStatus(ctx context.Context, galleryID uuid.UUID, status db_models.TransactionStatus) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := r.db.WithContext(ctx).
		Where("gallery_id = ? AND status = ?", galleryID, status).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// FindByOwnerAndGallery is the guaranteed-consistent fallback: it walks the
// owner partition by primary key instead of the secondary index.
func (r *TransactionRepository) FindByOwnerAndGallery(ctx context.Context, ownerID, galleryID uuid.UUID, status db_models.TransactionStatus) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND gallery_id = ? AND status = ?", ownerID, galleryID, status).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter TransactionFilter, page, pageSize int) ([]db_models.Transaction, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&db_models.Transaction{}).
		Where("owner_id = ?", ownerID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []db_models.Transaction
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txns).Error
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (r *TransactionRepository) CountPaidByOwnerAndType(ctx context.Context, ownerID uuid.UUID, txnType db_models.TransactionType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db_models.Transaction{}).
		Where("owner_id = ? AND type = ? AND status = ?", ownerID, txnType, db_models.TxnStatusPaid).
		Count(&count).Error
	return count, err
}

// FindStaleUnpaid feeds the expiry sweeps. Index-backed query on status and
// creation time, never a table scan.
func (r *TransactionRepository) FindStaleUnpaid(ctx context.Context, txnType db_models.TransactionType, createdBefore int64, limit int) ([]db_models.Transaction, error) {
	var txns []db_models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND type = ? AND created_at < ?", db_models.TxnStatusUnpaid, txnType, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

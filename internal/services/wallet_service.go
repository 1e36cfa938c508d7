package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fotolio/internal/models/db_models"
	"fotolio/pkg/utils"
)

// WalletService owns the wallet balance. Nothing else writes it. Every
// balance change goes through a conditional update paired with exactly one
// ledger entry keyed by the idempotency key, so retried calls are no-ops.
type WalletService interface {
	// GetBalance is a display-grade read; it must not be used to authorize
	// a debit. Debit re-checks the balance at write time.
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	Debit(ctx context.Context, userID uuid.UUID, amountMinor int64, idempotencyKey string) error
	Credit(ctx context.Context, userID uuid.UUID, amountMinor int64, idempotencyKey string) error
}

type walletService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewWalletService(db *gorm.DB, logger *zap.Logger) WalletService {
	return &walletService{db: db, logger: logger}
}

func (s *walletService) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var wallet db_models.Wallet
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return wallet.BalanceMinor, nil
}

func (s *walletService) Debit(ctx context.Context, userID uuid.UUID, amountMinor int64, idempotencyKey string) error {
	if amountMinor <= 0 {
		return utils.ErrInvalidAmount
	}
	if idempotencyKey == "" {
		return utils.ErrInvalidAmount
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Ledger row first: its unique (user_id, entry_id) index is the
		// idempotency gate. A duplicate key means the debit already
		// happened, so the retry succeeds without touching the balance.
		entry := db_models.LedgerEntry{
			UserID:      userID,
			EntryID:     idempotencyKey,
			Type:        db_models.LedgerDebit,
			AmountMinor: -amountMinor,
			ReferenceID: idempotencyKey,
		}
		inserted := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if inserted.Error != nil {
			return inserted.Error
		}
		if inserted.RowsAffected == 0 {
			return nil
		}

		// Conditional decrement: re-checks the balance at write time so
		// two checkouts racing on the same stale read cannot both win.
		// Failing the condition rolls the ledger row back with it.
		updated := tx.Model(&db_models.Wallet{}).
			Where("user_id = ? AND balance_minor >= ?", userID, amountMinor).
			Update("balance_minor", gorm.Expr("balance_minor - ?", amountMinor))
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return utils.ErrInsufficientFunds
		}
		return nil
	})
	if err == nil {
		s.logger.Info("wallet debit applied",
			zap.String("user_id", userID.String()),
			zap.Int64("amount_minor", amountMinor),
			zap.String("idempotency_key", idempotencyKey))
	}
	return err
}

func (s *walletService) Credit(ctx context.Context, userID uuid.UUID, amountMinor int64, idempotencyKey string) error {
	if amountMinor <= 0 {
		return utils.ErrInvalidAmount
	}
	if idempotencyKey == "" {
		return utils.ErrInvalidAmount
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := db_models.LedgerEntry{
			UserID:      userID,
			EntryID:     idempotencyKey,
			Type:        db_models.LedgerTopUp,
			AmountMinor: amountMinor,
			ReferenceID: idempotencyKey,
		}
		inserted := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if inserted.Error != nil {
			return inserted.Error
		}
		if inserted.RowsAffected == 0 {
			// Duplicate webhook delivery; the credit already landed.
			return nil
		}

		var wallet db_models.Wallet
		if err := tx.Where(db_models.Wallet{UserID: userID}).FirstOrCreate(&wallet).Error; err != nil {
			return err
		}
		return tx.Model(&db_models.Wallet{}).
			Where("user_id = ?", userID).
			Update("balance_minor", gorm.Expr("balance_minor + ?", amountMinor)).Error
	})
	if err == nil {
		s.logger.Info("wallet credit applied",
			zap.String("user_id", userID.String()),
			zap.Int64("amount_minor", amountMinor),
			zap.String("idempotency_key", idempotencyKey))
	}
	return err
}

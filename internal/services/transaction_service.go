package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"fotolio/internal/models/db_models"
	"fotolio/internal/repositories"
	"fotolio/pkg/utils"
)

type CreateTransactionInput struct {
	ID           uuid.UUID // optional; assigned when zero
	OwnerID      uuid.UUID
	Type         db_models.TransactionType
	Method       db_models.PaymentMethod
	AmountMinor  int64
	WalletMinor  int64
	GatewayMinor int64
	Currency     string
	GalleryID    *uuid.UUID
	Metadata     datatypes.JSON
}

// TransactionServiceInterface is the authoritative source of "is this
// gallery paid". Gallery state flags are a cache of answers it gives.
type TransactionServiceInterface interface {
	Create(ctx context.Context, input CreateTransactionInput) (*db_models.Transaction, error)
	Get(ctx context.Context, ownerID, txnID uuid.UUID) (*db_models.Transaction, error)
	Transition(ctx context.Context, ownerID, txnID uuid.UUID, target db_models.TransactionStatus) error
	AttachCheckoutSession(ctx context.Context, txnID uuid.UUID, sessionID string) error
	FindPaidForGallery(ctx context.Context, galleryID uuid.UUID) (*db_models.Transaction, error)
	FindUnpaidForGallery(ctx context.Context, galleryID uuid.UUID, ownerHint *uuid.UUID) (*db_models.Transaction, error)
	FindStaleUnpaid(ctx context.Context, txnType db_models.TransactionType, createdBefore int64, limit int) ([]db_models.Transaction, error)
	ListByUser(ctx context.Context, ownerID uuid.UUID, filter repositories.TransactionFilter, page, pageSize int) ([]db_models.Transaction, int64, error)
}

type transactionService struct {
	repo   repositories.ITransactionRepository
	logger *zap.Logger
}

func NewTransactionService(repo repositories.ITransactionRepository, logger *zap.Logger) TransactionServiceInterface {
	return &transactionService{repo: repo, logger: logger}
}

func (s *transactionService) Create(ctx context.Context, input CreateTransactionInput) (*db_models.Transaction, error) {
	if input.AmountMinor <= 0 {
		return nil, utils.ErrInvalidAmount
	}
	if input.WalletMinor+input.GatewayMinor != input.AmountMinor {
		return nil, utils.ErrInvalidAmount
	}

	// At most one open purchase intent per (owner, gallery).
	if input.GalleryID != nil {
		existing, err := s.FindUnpaidForGallery(ctx, *input.GalleryID, &input.OwnerID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, utils.ErrUnpaidTransactionExists
		}
	}

	txn := &db_models.Transaction{
		OwnerID:      input.OwnerID,
		Type:         input.Type,
		Status:       db_models.TxnStatusUnpaid,
		Method:       input.Method,
		AmountMinor:  input.AmountMinor,
		WalletMinor:  input.WalletMinor,
		GatewayMinor: input.GatewayMinor,
		Currency:     input.Currency,
		GalleryID:    input.GalleryID,
		Metadata:     input.Metadata,
	}
	txn.ID = input.ID

	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, err
	}
	s.logger.Info("transaction created",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("owner_id", txn.OwnerID.String()),
		zap.String("type", string(txn.Type)),
		zap.Int64("amount_minor", txn.AmountMinor))
	return txn, nil
}

func (s *transactionService) Get(ctx context.Context, ownerID, txnID uuid.UUID) (*db_models.Transaction, error) {
	txn, err := s.repo.GetByOwnerAndID(ctx, ownerID, txnID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, utils.ErrTransactionNotFound
	}
	return txn, nil
}

// allowedTransitions encodes the one-way status machine. REFUNDED is the
// only exit from a terminal state.
var allowedTransitions = map[db_models.TransactionStatus][]db_models.TransactionStatus{
	db_models.TxnStatusUnpaid: {db_models.TxnStatusPaid, db_models.TxnStatusCanceled, db_models.TxnStatusFailed},
	db_models.TxnStatusPaid:   {db_models.TxnStatusRefunded},
}

func transitionAllowed(from, to db_models.TransactionStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *transactionService) Transition(ctx context.Context, ownerID, txnID uuid.UUID, target db_models.TransactionStatus) error {
	txn, err := s.repo.GetByOwnerAndID(ctx, ownerID, txnID)
	if err != nil {
		return err
	}
	if txn == nil {
		return utils.ErrTransactionNotFound
	}
	if txn.Status == target {
		// Reprocessing a duplicate event must be harmless.
		return nil
	}
	if !transitionAllowed(txn.Status, target) {
		return utils.ErrInvalidTransition
	}

	now := utils.NowUnixSeconds()
	stamps := map[string]interface{}{}
	switch target {
	case db_models.TxnStatusPaid:
		stamps["paid_at"] = now
	case db_models.TxnStatusCanceled, db_models.TxnStatusFailed:
		stamps["canceled_at"] = now
	}

	rows, err := s.repo.UpdateStatus(ctx, ownerID, txnID, txn.Status, target, stamps)
	if err != nil {
		return err
	}
	if rows == 0 {
		// Lost a race with a concurrent transition; re-read and accept if
		// the other writer landed on the same target.
		current, err := s.repo.GetByOwnerAndID(ctx, ownerID, txnID)
		if err != nil {
			return err
		}
		if current != nil && current.Status == target {
			return nil
		}
		return utils.ErrInvalidTransition
	}

	s.logger.Info("transaction transitioned",
		zap.String("transaction_id", txnID.String()),
		zap.String("from", string(txn.Status)),
		zap.String("to", string(target)))
	return nil
}

func (s *transactionService) AttachCheckoutSession(ctx context.Context, txnID uuid.UUID, sessionID string) error {
	return s.repo.SetCheckoutSession(ctx, txnID, sessionID)
}

func (s *transactionService) FindPaidForGallery(ctx context.Context, galleryID uuid.UUID) (*db_models.Transaction, error) {
	return s.repo.FindByGalleryAndStatus(ctx, galleryID, db_models.TxnStatusPaid)
}

// FindUnpaidForGallery runs the two-step lookup: the index-backed query
// first, then the owner-scoped consistent query when the index comes back
// empty. The secondary index may lag; absence there is not proof.
func (s *transactionService) FindUnpaidForGallery(ctx context.Context, galleryID uuid.UUID, ownerHint *uuid.UUID) (*db_models.Transaction, error) {
	lookup := galleryTxnLookup{repo: s.repo, galleryID: galleryID, status: db_models.TxnStatusUnpaid}
	txn, err := lookup.fast(ctx)
	if err != nil || txn != nil {
		return txn, err
	}
	if ownerHint == nil {
		return nil, nil
	}
	return lookup.consistent(ctx, *ownerHint)
}

func (s *transactionService) FindStaleUnpaid(ctx context.Context, txnType db_models.TransactionType, createdBefore int64, limit int) ([]db_models.Transaction, error) {
	return s.repo.FindStaleUnpaid(ctx, txnType, createdBefore, limit)
}

func (s *transactionService) ListByUser(ctx context.Context, ownerID uuid.UUID, filter repositories.TransactionFilter, page, pageSize int) ([]db_models.Transaction, int64, error) {
	if page < 1 {
		return nil, 0, utils.ErrInvalidPage
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, 0, utils.ErrInvalidPageSize
	}
	return s.repo.ListByOwner(ctx, ownerID, filter, page, pageSize)
}

// galleryTxnLookup makes the fallback chain explicit: try the fast path, and
// only trust "not found" after the consistent path agrees.
type galleryTxnLookup struct {
	repo      repositories.ITransactionRepository
	galleryID uuid.UUID
	status    db_models.TransactionStatus
}

func (l galleryTxnLookup) fast(ctx context.Context) (*db_models.Transaction, error) {
	return l.repo.FindByGalleryAndStatus(ctx, l.galleryID, l.status)
}

func (l galleryTxnLookup) consistent(ctx context.Context, ownerID uuid.UUID) (*db_models.Transaction, error) {
	return l.repo.FindByOwnerAndGallery(ctx, ownerID, l.galleryID, l.status)
}

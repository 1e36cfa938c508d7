package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"fotolio/internal/gateway"
	"fotolio/internal/models/db_models"
	"fotolio/internal/repositories"
	"fotolio/pkg/utils"
)

// BatchResult reports which events in a delivered batch could not be
// applied. The event source redelivers only the failed subset.
type BatchResult struct {
	Processed int
	Failed    []FailedEvent
}

type FailedEvent struct {
	Index int
	Event gateway.Event
	Err   error
}

func (r BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d events failed, first: %w",
		len(r.Failed), r.Processed+len(r.Failed), r.Failed[0].Err)
}

// ReconcilerServiceInterface consumes gateway events and settles
// transactions idempotently. Events may arrive duplicated and out of order.
type ReconcilerServiceInterface interface {
	Process(ctx context.Context, event gateway.Event) error
	ProcessBatch(ctx context.Context, events []gateway.Event) BatchResult
}

type reconcilerService struct {
	transactions TransactionServiceInterface
	wallets      WalletService
	referrals    ReferralServiceInterface
	auditRepo    repositories.IPaymentAuditRepository
	effects      *settlementEffects
	logger       *zap.Logger
}

func NewReconcilerService(
	transactions TransactionServiceInterface,
	wallets WalletService,
	referrals ReferralServiceInterface,
	auditRepo repositories.IPaymentAuditRepository,
	galleryRepo repositories.IGalleryRepository,
	planRepo repositories.IPlanRepository,
	assetRepo repositories.IGalleryAssetRepository,
	scheduler SchedulerServiceInterface,
	logger *zap.Logger,
) ReconcilerServiceInterface {
	return &reconcilerService{
		transactions: transactions,
		wallets:      wallets,
		referrals:    referrals,
		auditRepo:    auditRepo,
		effects: &settlementEffects{
			galleryRepo: galleryRepo,
			planRepo:    planRepo,
			assetRepo:   assetRepo,
			scheduler:   scheduler,
			logger:      logger,
		},
		logger: logger,
	}
}

func (s *reconcilerService) Process(ctx context.Context, event gateway.Event) error {
	switch typed := event.(type) {
	case gateway.CheckoutCompleted:
		return s.handleCompleted(ctx, typed)
	case gateway.CheckoutExpired:
		return s.handleTerminal(ctx, typed.Meta, db_models.TxnStatusCanceled, "checkout_expired")
	case gateway.PaymentCanceled:
		return s.handleTerminal(ctx, typed.Meta, db_models.TxnStatusCanceled, "payment_canceled")
	case gateway.PaymentFailed:
		return s.handleTerminal(ctx, typed.Meta, db_models.TxnStatusFailed, "payment_failed")
	case gateway.Unknown:
		// Acknowledged and ignored for forward compatibility.
		s.logger.Debug("ignoring unknown gateway event", zap.String("type", typed.Type))
		return nil
	default:
		s.logger.Debug("ignoring unhandled gateway event", zap.String("event", event.EventName()))
		return nil
	}
}

// ProcessBatch attempts every event even when some fail, so one bad event
// cannot block the rest of the delivery.
func (s *reconcilerService) ProcessBatch(ctx context.Context, events []gateway.Event) BatchResult {
	var result BatchResult
	for index, event := range events {
		if err := s.Process(ctx, event); err != nil {
			s.logger.Error("event processing failed",
				zap.Int("index", index),
				zap.String("event", event.EventName()),
				zap.Error(err))
			result.Failed = append(result.Failed, FailedEvent{Index: index, Event: event, Err: err})
			continue
		}
		result.Processed++
	}
	return result
}

func (s *reconcilerService) handleCompleted(ctx context.Context, event gateway.CheckoutCompleted) error {
	// Dedup gate first: a payment id seen before means every external side
	// effect below already ran to completion.
	seen, err := s.auditRepo.Exists(ctx, event.PaymentID)
	if err != nil {
		return err
	}
	if seen {
		s.logger.Info("duplicate payment event ignored", zap.String("payment_id", event.PaymentID))
		return nil
	}

	meta := event.Meta
	txn, err := s.transactions.Get(ctx, meta.UserID, meta.TransactionID)
	if err != nil {
		return err
	}

	if err := s.transactions.Transition(ctx, meta.UserID, meta.TransactionID, db_models.TxnStatusPaid); err != nil {
		return err
	}

	switch meta.Type {
	case db_models.TxnTypeWalletTopUp:
		if err := s.wallets.Credit(ctx, meta.UserID, meta.GatewayMinor, meta.TransactionID.String()); err != nil {
			return err
		}
	case db_models.TxnTypeGalleryPurchase, db_models.TxnTypePlanUpgrade:
		if meta.GalleryID == nil {
			return fmt.Errorf("completed %s event without gallery reference", meta.Type)
		}
		if err := s.effects.activateGallery(ctx, *meta.GalleryID, meta.UserID); err != nil {
			return err
		}
		if code := discountCodeFromTxn(txn); code != "" {
			if err := s.referrals.RedeemCode(ctx, code, *meta.GalleryID); err != nil {
				s.logger.Warn("discount redemption failed", zap.Error(err))
			}
		}
		if meta.ReferrerID != nil {
			if err := s.referrals.GrantReferrerReward(ctx, *meta.ReferrerID, *meta.GalleryID, meta.UserID); err != nil {
				return err
			}
		}
	}

	// Audit row last; the entry check above no-ops future deliveries.
	if _, err := s.auditRepo.Record(ctx, event.PaymentID, meta.TransactionID, "checkout_completed", utils.NowUnixSeconds()); err != nil {
		return err
	}
	s.logger.Info("payment reconciled",
		zap.String("payment_id", event.PaymentID),
		zap.String("transaction_id", meta.TransactionID.String()))
	return nil
}

func (s *reconcilerService) handleTerminal(ctx context.Context, meta gateway.SessionMeta, target db_models.TransactionStatus, reason string) error {
	txn, err := s.transactions.Get(ctx, meta.UserID, meta.TransactionID)
	if err != nil {
		return err
	}
	if txn.Status != db_models.TxnStatusUnpaid {
		// Already settled or already terminal; nothing to unwind.
		return nil
	}

	if err := s.transactions.Transition(ctx, meta.UserID, meta.TransactionID, target); err != nil {
		return err
	}
	if meta.GalleryID != nil {
		if err := s.effects.releaseLock(ctx, *meta.GalleryID); err != nil {
			s.logger.Warn("payment lock release failed",
				zap.String("gallery_id", meta.GalleryID.String()), zap.Error(err))
		}
	}

	s.logger.Info("transaction closed by gateway event",
		zap.String("transaction_id", meta.TransactionID.String()),
		zap.String("reason", reason),
		zap.String("status", string(target)))
	return nil
}
func discountCodeFromTxn(txn *db_models.Transaction) string {
	if txn == nil || len(txn.Metadata) == 0 {
		return ""
	}
	var meta struct {
		DiscountCode string `json:"discount_code"`
	}
	if err := json.Unmarshal(txn.Metadata, &meta); err != nil {
		return ""
	}
	return meta.DiscountCode
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"fotolio/internal/gateway"
	"fotolio/internal/models/db_models"
	"fotolio/internal/models/response_models"
	"fotolio/internal/repositories"
	"fotolio/pkg/utils"
)

// Gateway checkout sessions are short-lived; an abandoned one expires and
// the reconciler cancels the transaction.
const checkoutSessionTTL = 30 * time.Minute

type GalleryCheckoutInput struct {
	UserID       uuid.UUID
	GalleryID    uuid.UUID
	DiscountCode string
	ReferrerID   *uuid.UUID
}

type CheckoutServiceInterface interface {
	CreateGalleryCheckout(ctx context.Context, input GalleryCheckoutInput) (*response_models.CheckoutResponse, error)
	CreateTopUpCheckout(ctx context.Context, userID uuid.UUID, amountMinor int64) (*response_models.CheckoutResponse, error)
}

type checkoutService struct {
	galleryRepo  repositories.IGalleryRepository
	planRepo     repositories.IPlanRepository
	wallets      WalletService
	transactions TransactionServiceInterface
	referrals    ReferralServiceInterface
	gateway      gateway.Client
	effects      *settlementEffects
	currency     string
	logger       *zap.Logger
}

func NewCheckoutService(
	galleryRepo repositories.IGalleryRepository,
	planRepo repositories.IPlanRepository,
	assetRepo repositories.IGalleryAssetRepository,
	wallets WalletService,
	transactions TransactionServiceInterface,
	referrals ReferralServiceInterface,
	scheduler SchedulerServiceInterface,
	gatewayClient gateway.Client,
	currency string,
	logger *zap.Logger,
) CheckoutServiceInterface {
	return &checkoutService{
		galleryRepo:  galleryRepo,
		planRepo:     planRepo,
		wallets:      wallets,
		transactions: transactions,
		referrals:    referrals,
		gateway:      gatewayClient,
		effects: &settlementEffects{
			galleryRepo: galleryRepo,
			planRepo:    planRepo,
			assetRepo:   assetRepo,
			scheduler:   scheduler,
			logger:      logger,
		},
		currency: currency,
		logger:   logger,
	}
}

func (s *checkoutService) CreateGalleryCheckout(ctx context.Context, input GalleryCheckoutInput) (*response_models.CheckoutResponse, error) {
	gallery, err := s.galleryRepo.GetByID(ctx, input.GalleryID)
	if err != nil {
		return nil, err
	}
	if gallery == nil {
		return nil, utils.ErrGalleryNotFound
	}
	if gallery.OwnerID != input.UserID {
		return nil, utils.ErrNotOwner
	}

	if paid, err := s.transactions.FindPaidForGallery(ctx, input.GalleryID); err != nil {
		return nil, err
	} else if paid != nil {
		return nil, utils.ErrAlreadyPaid
	}

	plan, err := s.planRepo.GetPlanByCode(ctx, gallery.PlanCode)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, utils.ErrPlanNotFound
	}
	if plan.PriceMinor <= 0 {
		return nil, utils.ErrInvalidAmount
	}

	total := plan.PriceMinor
	metadata := map[string]interface{}{"plan_code": plan.Code}

	if input.ReferrerID != nil {
		if err := s.referrals.ValidateReferrerAtCheckout(ctx, input.UserID, *input.ReferrerID); err != nil {
			return nil, err
		}
		metadata["referrer_id"] = input.ReferrerID.String()
	}
	if input.DiscountCode != "" {
		discount, err := s.referrals.ValidateCodeAtCheckout(ctx, input.UserID, input.DiscountCode, total)
		if err != nil {
			return nil, err
		}
		total -= discount
		metadata["discount_code"] = input.DiscountCode
		if total <= 0 {
			return nil, utils.ErrInvalidAmount
		}
	}

	// Transaction id doubles as the wallet idempotency key, so it is fixed
	// before the debit.
	txnID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	// Split: wallet covers what it can, the gateway takes the shortfall.
	// The balance read is advisory; the conditional debit is what decides.
	balance, err := s.wallets.GetBalance(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	walletPortion := min64(balance, total)
	if walletPortion > 0 {
		if err := s.wallets.Debit(ctx, input.UserID, walletPortion, txnID.String()); err != nil {
			if errors.Is(err, utils.ErrInsufficientFunds) {
				// Raced with a concurrent debit; fall back to full gateway.
				walletPortion = 0
			} else {
				return nil, err
			}
		}
	}
	gatewayPortion := total - walletPortion

	metaJSON, _ := json.Marshal(metadata)
	galleryID := input.GalleryID
	txn, err := s.transactions.Create(ctx, CreateTransactionInput{
		ID:           txnID,
		OwnerID:      input.UserID,
		Type:         db_models.TxnTypeGalleryPurchase,
		Method:       methodForSplit(walletPortion, gatewayPortion),
		AmountMinor:  total,
		WalletMinor:  walletPortion,
		GatewayMinor: gatewayPortion,
		Currency:     s.currency,
		GalleryID:    &galleryID,
		Metadata:     datatypes.JSON(metaJSON),
	})
	if err != nil {
		// Undo the debit; the reversal key keeps the refund idempotent too.
		if walletPortion > 0 {
			if creditErr := s.wallets.Credit(ctx, input.UserID, walletPortion, txnID.String()+":reversal"); creditErr != nil {
				s.logger.Error("debit reversal failed",
					zap.String("transaction_id", txnID.String()), zap.Error(creditErr))
			}
		}
		return nil, err
	}

	if gatewayPortion == 0 {
		// Wallet covered everything: settle immediately, no session.
		if err := s.transactions.Transition(ctx, input.UserID, txn.ID, db_models.TxnStatusPaid); err != nil {
			return nil, err
		}
		if err := s.effects.activateGallery(ctx, input.GalleryID, input.UserID); err != nil {
			return nil, err
		}
		if input.DiscountCode != "" {
			if err := s.referrals.RedeemCode(ctx, input.DiscountCode, input.GalleryID); err != nil {
				s.logger.Warn("discount redemption failed", zap.Error(err))
			}
		}
		// No gateway event will arrive for this purchase, so the referrer
		// credit has to happen here.
		if input.ReferrerID != nil {
			if err := s.referrals.GrantReferrerReward(ctx, *input.ReferrerID, input.GalleryID, input.UserID); err != nil {
				s.logger.Error("referrer reward grant failed",
					zap.String("referrer_id", input.ReferrerID.String()),
					zap.String("gallery_id", input.GalleryID.String()),
					zap.Error(err))
			}
		}
		return &response_models.CheckoutResponse{
			TransactionID: txn.ID.String(),
			AmountMinor:   total,
			WalletMinor:   walletPortion,
			Status:        string(db_models.TxnStatusPaid),
		}, nil
	}

	sessionID, checkoutURL, err := s.gateway.CreateCheckoutSession(ctx, gateway.CheckoutInput{
		Description: fmt.Sprintf("Gallery %s (%s)", gallery.Title, plan.Code),
		AmountMinor: gatewayPortion,
		Currency:    s.currency,
		ExpiresAt:   time.Now().Add(checkoutSessionTTL).Unix(),
		Meta: gateway.SessionMeta{
			UserID:        input.UserID,
			TransactionID: txn.ID,
			Type:          db_models.TxnTypeGalleryPurchase,
			GalleryID:     &galleryID,
			WalletMinor:   walletPortion,
			GatewayMinor:  gatewayPortion,
			ReferrerID:    input.ReferrerID,
		},
	})
	if err != nil {
		// Session creation failed: fail the transaction and give the
		// wallet portion back.
		if transitionErr := s.transactions.Transition(ctx, input.UserID, txn.ID, db_models.TxnStatusFailed); transitionErr != nil {
			s.logger.Error("failing transaction after session error",
				zap.String("transaction_id", txn.ID.String()), zap.Error(transitionErr))
		}
		if walletPortion > 0 {
			if creditErr := s.wallets.Credit(ctx, input.UserID, walletPortion, txn.ID.String()+":reversal"); creditErr != nil {
				s.logger.Error("debit reversal failed",
					zap.String("transaction_id", txn.ID.String()), zap.Error(creditErr))
			}
		}
		return nil, err
	}

	if err := s.transactions.AttachCheckoutSession(ctx, txn.ID, sessionID); err != nil {
		return nil, err
	}
	if err := s.galleryRepo.SetPaymentLock(ctx, input.GalleryID, true, db_models.GalleryStatePaymentPending); err != nil {
		return nil, err
	}

	return &response_models.CheckoutResponse{
		TransactionID: txn.ID.String(),
		AmountMinor:   total,
		WalletMinor:   walletPortion,
		GatewayMinor:  gatewayPortion,
		Status:        string(db_models.TxnStatusUnpaid),
		CheckoutURL:   checkoutURL,
	}, nil
}

func (s *checkoutService) CreateTopUpCheckout(ctx context.Context, userID uuid.UUID, amountMinor int64) (*response_models.CheckoutResponse, error) {
	if amountMinor <= 0 {
		return nil, utils.ErrInvalidAmount
	}

	txn, err := s.transactions.Create(ctx, CreateTransactionInput{
		OwnerID:      userID,
		Type:         db_models.TxnTypeWalletTopUp,
		Method:       db_models.MethodGateway,
		AmountMinor:  amountMinor,
		GatewayMinor: amountMinor,
		Currency:     s.currency,
	})
	if err != nil {
		return nil, err
	}

	sessionID, checkoutURL, err := s.gateway.CreateCheckoutSession(ctx, gateway.CheckoutInput{
		Description: "Wallet top-up",
		AmountMinor: amountMinor,
		Currency:    s.currency,
		ExpiresAt:   time.Now().Add(checkoutSessionTTL).Unix(),
		Meta: gateway.SessionMeta{
			UserID:        userID,
			TransactionID: txn.ID,
			Type:          db_models.TxnTypeWalletTopUp,
			GatewayMinor:  amountMinor,
		},
	})
	if err != nil {
		if transitionErr := s.transactions.Transition(ctx, userID, txn.ID, db_models.TxnStatusFailed); transitionErr != nil {
			s.logger.Error("failing top-up after session error",
				zap.String("transaction_id", txn.ID.String()), zap.Error(transitionErr))
		}
		return nil, err
	}
	if err := s.transactions.AttachCheckoutSession(ctx, txn.ID, sessionID); err != nil {
		return nil, err
	}

	return &response_models.CheckoutResponse{
		TransactionID: txn.ID.String(),
		AmountMinor:   amountMinor,
		GatewayMinor:  amountMinor,
		Status:        string(db_models.TxnStatusUnpaid),
		CheckoutURL:   checkoutURL,
	}, nil
}

func methodForSplit(walletMinor, gatewayMinor int64) db_models.PaymentMethod {
	switch {
	case gatewayMinor == 0:
		return db_models.MethodWallet
	case walletMinor == 0:
		return db_models.MethodGateway
	default:
		return db_models.MethodMixed
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

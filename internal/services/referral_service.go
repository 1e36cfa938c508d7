package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fotolio/internal/models/db_models"
	"fotolio/internal/repositories"
	"fotolio/pkg/utils"
)

// Reward milestones: a discount code on the 1st and 3rd successful
// referral, code plus profile badge on the 10th.
const (
	milestoneFirst = 1
	milestoneThird = 3
	milestoneTenth = 10

	earnedCodeValidityDays = 90
)

type ReferralServiceInterface interface {
	// GrantReferrerReward is idempotent per gallery (webhook redelivery)
	// and per referred user (their later purchases count nothing).
	GrantReferrerReward(ctx context.Context, referrerID, galleryID, referredUserID uuid.UUID) error
	// ValidateCodeAtCheckout is read-only; it returns the discount in minor
	// units for the given price, or a structured rejection.
	ValidateCodeAtCheckout(ctx context.Context, userID uuid.UUID, code string, priceMinor int64) (int64, error)
	ValidateReferrerAtCheckout(ctx context.Context, buyerID, referrerID uuid.UUID) error
	RedeemCode(ctx context.Context, code string, galleryID uuid.UUID) error
}

type referralService struct {
	db      *gorm.DB
	repo    repositories.IReferralRepository
	txnRepo repositories.ITransactionRepository
	logger  *zap.Logger
}

func NewReferralService(db *gorm.DB, repo repositories.IReferralRepository, txnRepo repositories.ITransactionRepository, logger *zap.Logger) ReferralServiceInterface {
	return &referralService{db: db, repo: repo, txnRepo: txnRepo, logger: logger}
}

func (s *referralService) GrantReferrerReward(ctx context.Context, referrerID, galleryID, referredUserID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scoped := repositories.NewReferralRepository(tx)

		// Gallery mark absorbs redelivery of the same PAID event.
		newGallery, err := scoped.InsertMark(ctx, referrerID, db_models.MarkGallery, galleryID)
		if err != nil {
			return err
		}
		if !newGallery {
			return nil
		}

		// Referred-user mark: only their first-ever purchase counts toward
		// the referrer's success total.
		newUser, err := scoped.InsertMark(ctx, referrerID, db_models.MarkReferredUser, referredUserID)
		if err != nil {
			return err
		}
		if !newUser {
			return nil
		}

		if _, err := scoped.GetOrCreateState(ctx, referrerID); err != nil {
			return err
		}
		successCount, err := scoped.IncrementSuccess(ctx, referrerID)
		if err != nil {
			return err
		}

		switch successCount {
		case milestoneFirst, milestoneThird:
			if err := scoped.CreateCode(ctx, newEarnedCode(referrerID, db_models.DiscountPercent10)); err != nil {
				return err
			}
		case milestoneTenth:
			if err := scoped.CreateCode(ctx, newEarnedCode(referrerID, db_models.DiscountPercent25)); err != nil {
				return err
			}
			if err := scoped.AwardBadge(ctx, referrerID); err != nil {
				return err
			}
		}

		s.logger.Info("referral success recorded",
			zap.String("referrer_id", referrerID.String()),
			zap.Int("success_count", successCount))
		return nil
	})
}

func (s *referralService) ValidateCodeAtCheckout(ctx context.Context, userID uuid.UUID, code string, priceMinor int64) (int64, error) {
	earned, err := s.repo.FindCode(ctx, userID, code)
	if err != nil {
		return 0, err
	}
	if earned == nil || earned.Used {
		return 0, utils.ErrDiscountNotEligible
	}
	if earned.ExpiresAt > 0 && earned.ExpiresAt < time.Now().Unix() {
		return 0, utils.ErrDiscountNotEligible
	}

	switch earned.Type {
	case db_models.DiscountPercent10:
		return priceMinor / 10, nil
	case db_models.DiscountPercent25:
		return priceMinor / 4, nil
	default:
		return 0, utils.ErrDiscountNotEligible
	}
}

func (s *referralService) ValidateReferrerAtCheckout(ctx context.Context, buyerID, referrerID uuid.UUID) error {
	if buyerID == referrerID {
		return utils.ErrSelfReferral
	}

	// Referral credit only attaches to the buyer's first gallery purchase.
	paid, err := s.txnRepo.CountPaidByOwnerAndType(ctx, buyerID, db_models.TxnTypeGalleryPurchase)
	if err != nil {
		return err
	}
	if paid > 0 {
		return utils.ErrDiscountNotEligible
	}
	return nil
}

func (s *referralService) RedeemCode(ctx context.Context, code string, galleryID uuid.UUID) error {
	rows, err := s.repo.MarkCodeUsed(ctx, code, galleryID)
	if err != nil {
		return err
	}
	if rows == 0 {
		// Already redeemed; harmless on redelivery.
		s.logger.Debug("discount code already redeemed", zap.String("code", code))
	}
	return nil
}

func newEarnedCode(userID uuid.UUID, codeType db_models.DiscountCodeType) *db_models.EarnedDiscountCode {
	short := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
	return &db_models.EarnedDiscountCode{
		UserID:    userID,
		Code:      fmt.Sprintf("REF-%s", short),
		Type:      codeType,
		ExpiresAt: time.Now().AddDate(0, 0, earnedCodeValidityDays).Unix(),
	}
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"fotolio/internal/models/db_models"
	"fotolio/internal/repositories"
	"fotolio/pkg/utils"
)

func TestGrantReferrerRewardCountsOncePerGallery(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewReferralRepository(db)
	svc := NewReferralService(db, repo, repositories.NewTransactionRepository(db), testLogger())
	ctx := context.Background()

	referrerID := uuid.New()
	referredID := uuid.New()
	galleryID := uuid.New()

	// Webhook redelivery replays the same grant.
	for i := 0; i < 3; i++ {
		if err := svc.GrantReferrerReward(ctx, referrerID, galleryID, referredID); err != nil {
			t.Fatalf("grant attempt %d: %v", i, err)
		}
	}

	state, err := repo.GetOrCreateState(ctx, referrerID)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.SuccessCount != 1 {
		t.Fatalf("success count = %d, want 1", state.SuccessCount)
	}
}

func TestGrantReferrerRewardCountsOncePerReferredUser(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewReferralRepository(db)
	svc := NewReferralService(db, repo, repositories.NewTransactionRepository(db), testLogger())
	ctx := context.Background()

	referrerID := uuid.New()
	referredID := uuid.New()

	// Same referred user buying two galleries counts once.
	if err := svc.GrantReferrerReward(ctx, referrerID, uuid.New(), referredID); err != nil {
		t.Fatalf("first grant: %v", err)
	}
	if err := svc.GrantReferrerReward(ctx, referrerID, uuid.New(), referredID); err != nil {
		t.Fatalf("second grant: %v", err)
	}

	state, _ := repo.GetOrCreateState(ctx, referrerID)
	if state.SuccessCount != 1 {
		t.Fatalf("success count = %d, want 1", state.SuccessCount)
	}
}

// The counter bump happens in SQL, not as a read-modify-write, so no
// interleaving of grants can lose an increment.
func TestIncrementSuccessReturnsPostIncrementValue(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewReferralRepository(db)
	ctx := context.Background()
	referrerID := uuid.New()

	if _, err := repo.GetOrCreateState(ctx, referrerID); err != nil {
		t.Fatalf("create state: %v", err)
	}
	for want := 1; want <= 3; want++ {
		got, err := repo.IncrementSuccess(ctx, referrerID)
		if err != nil {
			t.Fatalf("increment %d: %v", want, err)
		}
		if got != want {
			t.Fatalf("count = %d, want %d", got, want)
		}
	}

	if _, err := repo.IncrementSuccess(ctx, uuid.New()); err == nil {
		t.Fatal("increment without a state row must fail")
	}
}

func TestMilestonesGrantCodesAndBadge(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewReferralRepository(db)
	svc := NewReferralService(db, repo, repositories.NewTransactionRepository(db), testLogger())
	ctx := context.Background()
	referrerID := uuid.New()

	for i := 0; i < 10; i++ {
		if err := svc.GrantReferrerReward(ctx, referrerID, uuid.New(), uuid.New()); err != nil {
			t.Fatalf("grant %d: %v", i, err)
		}
	}

	var codes []db_models.EarnedDiscountCode
	if err := db.Where("user_id = ?", referrerID).Find(&codes).Error; err != nil {
		t.Fatalf("load codes: %v", err)
	}
	if len(codes) != 3 {
		t.Fatalf("codes = %d, want 3 (milestones 1, 3, 10)", len(codes))
	}
	byType := map[db_models.DiscountCodeType]int{}
	for _, code := range codes {
		byType[code.Type]++
	}
	if byType[db_models.DiscountPercent10] != 2 || byType[db_models.DiscountPercent25] != 1 {
		t.Fatalf("code types = %v, want two percent_10 and one percent_25", byType)
	}

	state, _ := repo.GetOrCreateState(ctx, referrerID)
	if !state.BadgeEarned {
		t.Fatal("badge not earned at tenth success")
	}
}

func TestValidateCodeAtCheckout(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewReferralRepository(db)
	svc := NewReferralService(db, repo, repositories.NewTransactionRepository(db), testLogger())
	ctx := context.Background()
	userID := uuid.New()

	code := newEarnedCode(userID, db_models.DiscountPercent10)
	if err := repo.CreateCode(ctx, code); err != nil {
		t.Fatalf("create code: %v", err)
	}

	discount, err := svc.ValidateCodeAtCheckout(ctx, userID, code.Code, 1000)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if discount != 100 {
		t.Fatalf("discount = %d, want 100 (10%% of 1000)", discount)
	}

	// Another user cannot spend it.
	if _, err := svc.ValidateCodeAtCheckout(ctx, uuid.New(), code.Code, 1000); !errors.Is(err, utils.ErrDiscountNotEligible) {
		t.Fatalf("foreign user err = %v, want ErrDiscountNotEligible", err)
	}

	// A redeemed code is spent.
	galleryID := uuid.New()
	if err := svc.RedeemCode(ctx, code.Code, galleryID); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if _, err := svc.ValidateCodeAtCheckout(ctx, userID, code.Code, 1000); !errors.Is(err, utils.ErrDiscountNotEligible) {
		t.Fatalf("used code err = %v, want ErrDiscountNotEligible", err)
	}
}

func TestValidateReferrerRejectsSelfReferral(t *testing.T) {
	db := newTestDB(t)
	svc := NewReferralService(db, repositories.NewReferralRepository(db), repositories.NewTransactionRepository(db), testLogger())

	userID := uuid.New()
	if err := svc.ValidateReferrerAtCheckout(context.Background(), userID, userID); !errors.Is(err, utils.ErrSelfReferral) {
		t.Fatalf("err = %v, want ErrSelfReferral", err)
	}
}

func TestValidateReferrerRequiresFirstPurchase(t *testing.T) {
	db := newTestDB(t)
	txnSvc := NewTransactionService(repositories.NewTransactionRepository(db), testLogger())
	svc := NewReferralService(db, repositories.NewReferralRepository(db), repositories.NewTransactionRepository(db), testLogger())
	ctx := context.Background()

	buyerID := uuid.New()
	galleryID := uuid.New()
	txn := createGalleryTxn(t, txnSvc, buyerID, &galleryID, 1000)
	if err := txnSvc.Transition(ctx, buyerID, txn.ID, db_models.TxnStatusPaid); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	err := svc.ValidateReferrerAtCheckout(ctx, buyerID, uuid.New())
	if !errors.Is(err, utils.ErrDiscountNotEligible) {
		t.Fatalf("err = %v, want ErrDiscountNotEligible for repeat buyer", err)
	}
}

func TestRedeemCodeIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewReferralRepository(db)
	svc := NewReferralService(db, repo, repositories.NewTransactionRepository(db), testLogger())
	ctx := context.Background()

	code := newEarnedCode(uuid.New(), db_models.DiscountPercent10)
	if err := repo.CreateCode(ctx, code); err != nil {
		t.Fatalf("create code: %v", err)
	}

	galleryID := uuid.New()
	if err := svc.RedeemCode(ctx, code.Code, galleryID); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if err := svc.RedeemCode(ctx, code.Code, galleryID); err != nil {
		t.Fatalf("second redeem should be harmless: %v", err)
	}
}

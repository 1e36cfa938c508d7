package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fotolio/internal/gateway"
	"fotolio/internal/models/db_models"
	"fotolio/internal/repositories"
	"fotolio/pkg/utils"
)

type checkoutFixture struct {
	db           *gorm.DB
	gateway      *stubGateway
	wallets      WalletService
	transactions TransactionServiceInterface
	galleryRepo  repositories.IGalleryRepository
	checkout     CheckoutServiceInterface
	reconciler   ReconcilerServiceInterface
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	db := newTestDB(t)
	logger := testLogger()
	gatewayStub := &stubGateway{}

	wallets := NewWalletService(db, logger)
	transactions := NewTransactionService(repositories.NewTransactionRepository(db), logger)
	referrals := NewReferralService(db, repositories.NewReferralRepository(db), repositories.NewTransactionRepository(db), logger)
	scheduler := NewSchedulerService(repositories.NewScheduledJobRepository(db), logger)
	galleryRepo := repositories.NewGalleryRepository(db)
	planRepo := repositories.NewPlanRepository(db)
	assetRepo := repositories.NewGalleryAssetRepository(db)

	checkout := NewCheckoutService(
		galleryRepo, planRepo, assetRepo,
		wallets, transactions, referrals, scheduler,
		gatewayStub, "usd", logger,
	)
	reconciler := NewReconcilerService(
		transactions, wallets, referrals,
		repositories.NewPaymentAuditRepository(db),
		galleryRepo, planRepo, assetRepo, scheduler, logger,
	)

	return &checkoutFixture{
		db:           db,
		gateway:      gatewayStub,
		wallets:      wallets,
		transactions: transactions,
		galleryRepo:  galleryRepo,
		checkout:     checkout,
		reconciler:   reconciler,
	}
}

// A wallet holding 500 on an 800 purchase: 500 from the wallet, 300 via the
// gateway, settled when the completed event arrives.
func TestMixedCheckoutSplitsAndSettles(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	seedWallet(t, f.db, userID, 500)
	seedPlan(t, f.db, "basic", 800)
	gallery := seedGallery(t, f.db, userID, "basic")

	resp, err := f.checkout.CreateGalleryCheckout(ctx, GalleryCheckoutInput{
		UserID:    userID,
		GalleryID: gallery.ID,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.WalletMinor != 500 || resp.GatewayMinor != 300 {
		t.Fatalf("split = %d/%d, want 500/300", resp.WalletMinor, resp.GatewayMinor)
	}
	if resp.CheckoutURL == "" {
		t.Fatal("no checkout URL for the gateway remainder")
	}

	balance, _ := f.wallets.GetBalance(ctx, userID)
	if balance != 0 {
		t.Fatalf("balance = %d, want 0 after debit", balance)
	}

	locked, _ := f.galleryRepo.GetByID(ctx, gallery.ID)
	if !locked.PaymentLocked || locked.State != db_models.GalleryStatePaymentPending {
		t.Fatalf("gallery = locked:%v state:%s, want payment lock held", locked.PaymentLocked, locked.State)
	}

	// Gateway confirms the 300 remainder.
	txnID := uuid.MustParse(resp.TransactionID)
	galleryID := gallery.ID
	err = f.reconciler.Process(ctx, gateway.CheckoutCompleted{
		PaymentID: "pi_settle",
		Meta: gateway.SessionMeta{
			UserID:        userID,
			TransactionID: txnID,
			Type:          db_models.TxnTypeGalleryPurchase,
			GalleryID:     &galleryID,
			WalletMinor:   500,
			GatewayMinor:  300,
		},
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	settled, _ := f.transactions.Get(ctx, userID, txnID)
	if settled.Status != db_models.TxnStatusPaid {
		t.Fatalf("status = %s, want paid", settled.Status)
	}
	active, _ := f.galleryRepo.GetByID(ctx, gallery.ID)
	if active.State != db_models.GalleryStateActive || active.PaymentLocked {
		t.Fatalf("gallery = state:%s locked:%v, want active and unlocked", active.State, active.PaymentLocked)
	}
}

// A wallet holding 1000 on an 800 purchase settles immediately without a
// gateway session.
func TestWalletOnlyCheckoutSettlesImmediately(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	seedWallet(t, f.db, userID, 1000)
	seedPlan(t, f.db, "basic", 800)
	gallery := seedGallery(t, f.db, userID, "basic")

	resp, err := f.checkout.CreateGalleryCheckout(ctx, GalleryCheckoutInput{
		UserID:    userID,
		GalleryID: gallery.ID,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.Status != string(db_models.TxnStatusPaid) {
		t.Fatalf("status = %s, want paid immediately", resp.Status)
	}
	if resp.CheckoutURL != "" {
		t.Fatal("wallet-only checkout must not open a gateway session")
	}
	if len(f.gateway.sessions) != 0 {
		t.Fatalf("gateway sessions = %d, want 0", len(f.gateway.sessions))
	}

	balance, _ := f.wallets.GetBalance(ctx, userID)
	if balance != 200 {
		t.Fatalf("balance = %d, want 200", balance)
	}

	active, _ := f.galleryRepo.GetByID(ctx, gallery.ID)
	if active.State != db_models.GalleryStateActive {
		t.Fatalf("gallery state = %s, want active", active.State)
	}
}

// A fully wallet-covered purchase produces no gateway event, so the referrer
// credit must land during the immediate settlement.
func TestWalletOnlyCheckoutCreditsReferrer(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	referrerID := uuid.New()

	seedWallet(t, f.db, userID, 1000)
	seedPlan(t, f.db, "basic", 800)
	gallery := seedGallery(t, f.db, userID, "basic")

	resp, err := f.checkout.CreateGalleryCheckout(ctx, GalleryCheckoutInput{
		UserID:     userID,
		GalleryID:  gallery.ID,
		ReferrerID: &referrerID,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.Status != string(db_models.TxnStatusPaid) {
		t.Fatalf("status = %s, want paid immediately", resp.Status)
	}

	state, err := repositories.NewReferralRepository(f.db).GetOrCreateState(ctx, referrerID)
	if err != nil {
		t.Fatalf("load referral state: %v", err)
	}
	if state.SuccessCount != 1 {
		t.Fatalf("referrer success count = %d, want 1", state.SuccessCount)
	}
}

func TestCheckoutRejectsNonOwner(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	seedPlan(t, f.db, "basic", 800)
	gallery := seedGallery(t, f.db, uuid.New(), "basic")

	_, err := f.checkout.CreateGalleryCheckout(ctx, GalleryCheckoutInput{
		UserID:    uuid.New(),
		GalleryID: gallery.ID,
	})
	if !errors.Is(err, utils.ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestCheckoutRejectsAlreadyPaidGallery(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	seedWallet(t, f.db, userID, 1000)
	seedPlan(t, f.db, "basic", 800)
	gallery := seedGallery(t, f.db, userID, "basic")

	if _, err := f.checkout.CreateGalleryCheckout(ctx, GalleryCheckoutInput{UserID: userID, GalleryID: gallery.ID}); err != nil {
		t.Fatalf("first checkout: %v", err)
	}

	_, err := f.checkout.CreateGalleryCheckout(ctx, GalleryCheckoutInput{UserID: userID, GalleryID: gallery.ID})
	if !errors.Is(err, utils.ErrAlreadyPaid) {
		t.Fatalf("err = %v, want ErrAlreadyPaid", err)
	}
}

func TestCheckoutRejectsDuplicateOpenIntent(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	seedPlan(t, f.db, "basic", 800)
	gallery := seedGallery(t, f.db, userID, "basic")

	if _, err := f.checkout.CreateGalleryCheckout(ctx, GalleryCheckoutInput{UserID: userID, GalleryID: gallery.ID}); err != nil {
		t.Fatalf("first checkout: %v", err)
	}

	// The first intent is still open (unpaid, waiting on the gateway).
	_, err := f.checkout.CreateGalleryCheckout(ctx, GalleryCheckoutInput{UserID: userID, GalleryID: gallery.ID})
	if !errors.Is(err, utils.ErrUnpaidTransactionExists) {
		t.Fatalf("err = %v, want ErrUnpaidTransactionExists", err)
	}
}

func TestCheckoutSessionFailureRefundsWalletPortion(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	seedWallet(t, f.db, userID, 500)
	seedPlan(t, f.db, "basic", 800)
	gallery := seedGallery(t, f.db, userID, "basic")

	f.gateway.failNext = true
	_, err := f.checkout.CreateGalleryCheckout(ctx, GalleryCheckoutInput{UserID: userID, GalleryID: gallery.ID})
	if err == nil {
		t.Fatal("expected gateway error")
	}

	// The debited 500 must come back.
	balance, _ := f.wallets.GetBalance(ctx, userID)
	if balance != 500 {
		t.Fatalf("balance = %d, want 500 refunded", balance)
	}
}

func TestTopUpCheckoutOpensGatewaySession(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	resp, err := f.checkout.CreateTopUpCheckout(ctx, userID, 2500)
	if err != nil {
		t.Fatalf("top-up checkout: %v", err)
	}
	if resp.GatewayMinor != 2500 || resp.CheckoutURL == "" {
		t.Fatalf("resp = %+v, want full amount on the gateway with a URL", resp)
	}
	if len(f.gateway.sessions) != 1 {
		t.Fatalf("gateway sessions = %d, want 1", len(f.gateway.sessions))
	}
	if f.gateway.sessions[0].Meta.Type != db_models.TxnTypeWalletTopUp {
		t.Fatalf("session meta type = %s, want wallet_topup", f.gateway.sessions[0].Meta.Type)
	}

	if _, err := f.checkout.CreateTopUpCheckout(ctx, userID, 0); !errors.Is(err, utils.ErrInvalidAmount) {
		t.Fatalf("zero amount err = %v, want ErrInvalidAmount", err)
	}
}

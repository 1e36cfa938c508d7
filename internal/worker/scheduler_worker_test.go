package worker

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fotolio/internal/infra"
	"fotolio/internal/models/db_models"
	"fotolio/internal/repositories"
	"fotolio/internal/services"
)

type noopObjectStore struct{}

func (noopObjectStore) ListPage(context.Context, string, string, int) ([]string, error) {
	return nil, nil
}
func (noopObjectStore) DeleteBatch(_ context.Context, keys []string) (int, error) {
	return len(keys), nil
}

type silentMailer struct{}

func (silentMailer) SendMailToNotifyUser(string, string, string) error { return nil }
func (silentMailer) SendGalleryDeletedNotice(string, string) error     { return nil }
func (silentMailer) Configured() bool                                  { return false }

type workerFixture struct {
	db           *gorm.DB
	worker       *SchedulerWorker
	transactions services.TransactionServiceInterface
	galleryRepo  repositories.IGalleryRepository
	jobRepo      repositories.IScheduledJobRepository
	scheduler    services.SchedulerServiceInterface
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(t.TempDir()+"/fotolio.db"), &gorm.Config{})
	if err != nil {
		t.Fatalf("sqlite open failed: %v", err)
	}
	if err := infra.AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	logger := zap.NewNop()

	galleryRepo := repositories.NewGalleryRepository(db)
	assetRepo := repositories.NewGalleryAssetRepository(db)
	jobRepo := repositories.NewScheduledJobRepository(db)
	transactions := services.NewTransactionService(repositories.NewTransactionRepository(db), logger)
	scheduler := services.NewSchedulerService(jobRepo, logger)
	reaper := services.NewReaperService(galleryRepo, assetRepo, transactions, scheduler, noopObjectStore{}, silentMailer{}, logger)

	return &workerFixture{
		db:           db,
		worker:       NewSchedulerWorker(jobRepo, galleryRepo, scheduler, reaper, transactions, logger),
		transactions: transactions,
		galleryRepo:  galleryRepo,
		jobRepo:      jobRepo,
		scheduler:    scheduler,
	}
}

func TestRunOnceDeletesExpiredGallery(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	expired := time.Now().Add(-48 * time.Hour).Unix()
	gallery := &db_models.Gallery{
		OwnerID:   uuid.New(),
		Title:     "Old Gallery",
		State:     db_models.GalleryStateExpired,
		PlanCode:  "basic",
		ExpiresAt: &expired,
	}
	if err := f.db.Create(gallery).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.scheduler.ScheduleExpiry(ctx, gallery.ID, expired); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	f.worker.RunOnce(ctx)

	gone, _ := f.galleryRepo.GetByID(ctx, gallery.ID)
	if gone != nil {
		t.Fatal("expired gallery not deleted")
	}
}

func TestRunOnceReschedulesExtendedGallery(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	// Job fired but the gallery was extended after it was written.
	extended := time.Now().Add(72 * time.Hour).Unix()
	gallery := &db_models.Gallery{
		OwnerID:   uuid.New(),
		Title:     "Extended Gallery",
		State:     db_models.GalleryStateActive,
		PlanCode:  "basic",
		ExpiresAt: &extended,
	}
	if err := f.db.Create(gallery).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.jobRepo.Upsert(ctx, services.ExpiryJobName(gallery.ID), gallery.ID, time.Now().Add(-time.Minute).Unix()); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	f.worker.RunOnce(ctx)

	alive, _ := f.galleryRepo.GetByID(ctx, gallery.ID)
	if alive == nil {
		t.Fatal("extended gallery deleted by stale job")
	}

	var job db_models.ScheduledJob
	if err := f.db.Where("name = ?", services.ExpiryJobName(gallery.ID)).First(&job).Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job.Status != db_models.JobStatusPending || job.RunAt != extended {
		t.Fatalf("job = status:%s run_at:%d, want pending at new expiry %d", job.Status, job.RunAt, extended)
	}
}

// partialReaper simulates a teardown that runs out of its time budget.
type partialReaper struct {
	calls int
}

func (r *partialReaper) Delete(context.Context, uuid.UUID, services.DeleteOptions) (*services.DeletionReport, error) {
	r.calls++
	return &services.DeletionReport{Partial: true}, nil
}

func TestRunOnceReArmsJobAfterPartialDeletion(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	reaper := &partialReaper{}
	worker := NewSchedulerWorker(f.jobRepo, f.galleryRepo, f.scheduler, reaper, f.transactions, zap.NewNop())

	expired := time.Now().Add(-48 * time.Hour).Unix()
	gallery := &db_models.Gallery{
		OwnerID:   uuid.New(),
		Title:     "Big Gallery",
		State:     db_models.GalleryStateExpired,
		PlanCode:  "basic",
		ExpiresAt: &expired,
	}
	if err := f.db.Create(gallery).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.scheduler.ScheduleExpiry(ctx, gallery.ID, expired); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	worker.RunOnce(ctx)

	if reaper.calls != 1 {
		t.Fatalf("reaper calls = %d, want 1", reaper.calls)
	}
	// The claim closed the fired job; a partial run must leave a fresh
	// pending one so the next tick resumes the cascade.
	var job db_models.ScheduledJob
	if err := f.db.Where("name = ?", services.ExpiryJobName(gallery.ID)).First(&job).Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job.Status != db_models.JobStatusPending {
		t.Fatalf("job status = %s, want pending after partial deletion", job.Status)
	}

	worker.RunOnce(ctx)
	if reaper.calls != 2 {
		t.Fatalf("reaper calls = %d, want the re-armed job to fire again", reaper.calls)
	}
}

func TestRunOnceCancelsStaleTopUps(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	txn, err := f.transactions.Create(ctx, services.CreateTransactionInput{
		OwnerID:      userID,
		Type:         db_models.TxnTypeWalletTopUp,
		Method:       db_models.MethodGateway,
		AmountMinor:  1000,
		GatewayMinor: 1000,
		Currency:     "usd",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Age the row beyond the sweep cutoff.
	old := time.Now().Add(-25 * time.Hour).Unix()
	if err := f.db.Model(&db_models.Transaction{}).Where("id = ?", txn.ID).Update("created_at", old).Error; err != nil {
		t.Fatalf("age txn: %v", err)
	}

	f.worker.RunOnce(ctx)

	swept, _ := f.transactions.Get(ctx, userID, txn.ID)
	if swept.Status != db_models.TxnStatusCanceled {
		t.Fatalf("status = %s, want canceled", swept.Status)
	}
}

func TestRunOnceLeavesFreshUnpaidAlone(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	txn, err := f.transactions.Create(ctx, services.CreateTransactionInput{
		OwnerID:      userID,
		Type:         db_models.TxnTypeWalletTopUp,
		Method:       db_models.MethodGateway,
		AmountMinor:  1000,
		GatewayMinor: 1000,
		Currency:     "usd",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	f.worker.RunOnce(ctx)

	fresh, _ := f.transactions.Get(ctx, userID, txn.ID)
	if fresh.Status != db_models.TxnStatusUnpaid {
		t.Fatalf("status = %s, want unpaid untouched", fresh.Status)
	}
}

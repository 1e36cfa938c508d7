package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fotolio/internal/models/db_models"
	"fotolio/internal/repositories"
	"fotolio/internal/services"
	"fotolio/pkg/utils"
)

const (
	defaultPollInterval = 30 * time.Second
	dueJobBatchSize     = 20

	// Unpaid top-ups are abandoned after a day; unpaid gallery purchases
	// after an hour (the checkout session is 30 minutes, swept with slack).
	staleTopUpAge    = 24 * time.Hour
	stalePurchaseAge = time.Hour
	staleSweepLimit  = 100
)

// SchedulerWorker is the single background loop: it fires due gallery-expiry
// jobs into the reaper and cancels stale unpaid transactions. One iteration
// never blocks the next; errors are logged and retried on the next tick.
type SchedulerWorker struct {
	jobRepo      repositories.IScheduledJobRepository
	galleryRepo  repositories.IGalleryRepository
	scheduler    services.SchedulerServiceInterface
	reaper       services.ReaperServiceInterface
	transactions services.TransactionServiceInterface
	interval     time.Duration
	logger       *zap.Logger
}

func NewSchedulerWorker(
	jobRepo repositories.IScheduledJobRepository,
	galleryRepo repositories.IGalleryRepository,
	scheduler services.SchedulerServiceInterface,
	reaper services.ReaperServiceInterface,
	transactions services.TransactionServiceInterface,
	logger *zap.Logger,
) *SchedulerWorker {
	return &SchedulerWorker{
		jobRepo:      jobRepo,
		galleryRepo:  galleryRepo,
		scheduler:    scheduler,
		reaper:       reaper,
		transactions: transactions,
		interval:     defaultPollInterval,
		logger:       logger,
	}
}

// Start runs the polling loop on its own goroutine until ctx is canceled.
func (w *SchedulerWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
	w.logger.Info("scheduler worker started", zap.Duration("interval", w.interval))
}

// RunOnce executes a single tick. Exported so tests and operational tooling
// can drive the loop deterministically.
func (w *SchedulerWorker) RunOnce(ctx context.Context) {
	w.fireDueJobs(ctx)
	w.sweepStaleUnpaid(ctx, db_models.TxnTypeWalletTopUp, staleTopUpAge, false)
	w.sweepStaleUnpaid(ctx, db_models.TxnTypeGalleryPurchase, stalePurchaseAge, true)
}

func (w *SchedulerWorker) fireDueJobs(ctx context.Context) {
	jobs, err := w.jobRepo.FindDue(ctx, time.Now().Unix(), dueJobBatchSize)
	if err != nil {
		w.logger.Error("find due jobs", zap.Error(err))
		return
	}

	for _, job := range jobs {
		claimed, err := w.jobRepo.Claim(ctx, job.ID)
		if err != nil {
			w.logger.Error("claim job", zap.String("job", job.Name), zap.Error(err))
			continue
		}
		if claimed == 0 {
			continue
		}

		report, err := w.reaper.Delete(ctx, job.GalleryID, services.DeleteOptions{
			ValidateExpiry:    true,
			SendNotifications: true,
		})
		if errors.Is(err, utils.ErrGalleryNotExpired) {
			// The gallery was extended after this job was written. Chase
			// the new expiry instead of dropping it.
			w.reschedule(ctx, job.GalleryID)
			continue
		}
		if err != nil {
			w.logger.Error("expiry deletion failed",
				zap.String("gallery_id", job.GalleryID.String()), zap.Error(err))
			continue
		}
		if report.Partial {
			// The claim already closed this job; re-arm it so the next tick
			// resumes the unfinished cascade.
			w.reschedule(ctx, job.GalleryID)
		}
	}
}

func (w *SchedulerWorker) reschedule(ctx context.Context, galleryID uuid.UUID) {
	gallery, err := w.galleryRepo.GetByID(ctx, galleryID)
	if err != nil || gallery == nil || gallery.ExpiresAt == nil {
		return
	}
	if err := w.scheduler.ScheduleExpiry(ctx, galleryID, *gallery.ExpiresAt); err != nil {
		w.logger.Warn("reschedule expiry",
			zap.String("gallery_id", galleryID.String()), zap.Error(err))
	}
}

func (w *SchedulerWorker) sweepStaleUnpaid(ctx context.Context, txnType db_models.TransactionType, age time.Duration, releaseLock bool) {
	cutoff := time.Now().Add(-age).Unix()
	stale, err := w.transactions.FindStaleUnpaid(ctx, txnType, cutoff, staleSweepLimit)
	if err != nil {
		w.logger.Error("stale unpaid sweep", zap.String("type", string(txnType)), zap.Error(err))
		return
	}

	for _, txn := range stale {
		if err := w.transactions.Transition(ctx, txn.OwnerID, txn.ID, db_models.TxnStatusCanceled); err != nil {
			w.logger.Warn("cancel stale transaction",
				zap.String("transaction_id", txn.ID.String()), zap.Error(err))
			continue
		}
		if releaseLock && txn.GalleryID != nil {
			if err := w.galleryRepo.ReleasePaymentLock(ctx, *txn.GalleryID); err != nil {
				w.logger.Warn("release payment lock",
					zap.String("gallery_id", txn.GalleryID.String()), zap.Error(err))
			}
		}
	}
	if len(stale) > 0 {
		w.logger.Info("canceled stale unpaid transactions",
			zap.String("type", string(txnType)), zap.Int("count", len(stale)))
	}
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fotolio/internal/infra"
	"fotolio/internal/models/db_models"
	"fotolio/internal/repositories"
	"fotolio/pkg/utils"
)

const (
	// Grace buffer tolerates clock skew and last-minute extensions: a
	// gallery counts as expired only once it has been past its expiry for
	// the full buffer.
	expiryGraceBuffer = time.Hour

	defaultDeleteBudget = 60 * time.Second
	budgetHeadroom      = 10 * time.Second

	imageRowBatchSize = 500
	objectPageSize    = 1000
	deleteBatchFanout = 5

	// A full listing page splits into deleteBatchFanout concurrent
	// delete batches.
	objectDeleteBatchSz = objectPageSize / deleteBatchFanout
)

type DeleteOptions struct {
	// RequestedBy, when set, must match the gallery owner. Internal
	// callers (the expiry worker) leave it nil.
	RequestedBy       *uuid.UUID
	ValidateExpiry    bool
	SendNotifications bool
	Budget            time.Duration // zero means the default budget
}

// DeletionReport carries per-step counts. A Partial report means the time
// budget ran out; the caller re-runs the delete to finish the job.
type DeletionReport struct {
	ObjectsDeleted   int
	ImageRowsDeleted int
	OrdersDeleted    int
	Partial          bool
	StepErrors       []string
}

type ReaperServiceInterface interface {
	Delete(ctx context.Context, galleryID uuid.UUID, opts DeleteOptions) (*DeletionReport, error)
}

type reaperService struct {
	galleryRepo  repositories.IGalleryRepository
	assetRepo    repositories.IGalleryAssetRepository
	transactions TransactionServiceInterface
	scheduler    SchedulerServiceInterface
	objects      infra.ObjectStore
	mail         IMailService
	now          func() time.Time
	logger       *zap.Logger
}

func NewReaperService(
	galleryRepo repositories.IGalleryRepository,
	assetRepo repositories.IGalleryAssetRepository,
	transactions TransactionServiceInterface,
	scheduler SchedulerServiceInterface,
	objects infra.ObjectStore,
	mail IMailService,
	logger *zap.Logger,
) ReaperServiceInterface {
	return &reaperService{
		galleryRepo:  galleryRepo,
		assetRepo:    assetRepo,
		transactions: transactions,
		scheduler:    scheduler,
		objects:      objects,
		mail:         mail,
		now:          time.Now,
		logger:       logger,
	}
}

// GalleryPrefix is the object-storage prefix all of a gallery's assets
// live under.
func GalleryPrefix(galleryID uuid.UUID) string {
	return fmt.Sprintf("galleries/%s/", galleryID)
}

// Delete tears down a gallery and everything hanging off it. Each step is
// fault-isolated: a failure is recorded and the cascade continues. The
// gallery record and its expiry schedule outlive a Partial run so a re-run
// (or the re-fired expiry job) can reach the remaining objects; they are
// removed only once the object tree is fully drained. Only expiry
// validation aborts the cascade.
func (s *reaperService) Delete(ctx context.Context, galleryID uuid.UUID, opts DeleteOptions) (*DeletionReport, error) {
	report := &DeletionReport{}

	gallery, err := s.galleryRepo.GetByID(ctx, galleryID)
	if err != nil {
		return nil, err
	}
	if gallery == nil {
		// Already gone; a second delete is a successful no-op.
		return report, nil
	}
	if opts.RequestedBy != nil && *opts.RequestedBy != gallery.OwnerID {
		return nil, utils.ErrNotOwner
	}

	// Step 1: expiry validation. "Not yet expired" is a benign skip the
	// caller branches on, not an infrastructure failure.
	if opts.ValidateExpiry {
		now := s.now().Unix()
		if gallery.ExpiresAt == nil || *gallery.ExpiresAt > now-int64(expiryGraceBuffer.Seconds()) {
			return nil, utils.ErrGalleryNotExpired
		}
	}

	deadline := s.deadline(ctx, opts.Budget)

	// Step 2: cancel any open purchase intent.
	if txn, err := s.transactions.FindUnpaidForGallery(ctx, galleryID, &gallery.OwnerID); err != nil {
		s.recordStepError(report, "find unpaid transaction", err)
	} else if txn != nil {
		if err := s.transactions.Transition(ctx, txn.OwnerID, txn.ID, db_models.TxnStatusCanceled); err != nil {
			s.recordStepError(report, "cancel transaction", err)
		}
	}

	// Step 3: image metadata rows, bounded batches until exhausted.
	for {
		deleted, err := s.assetRepo.DeleteImageBatch(ctx, galleryID, imageRowBatchSize)
		if err != nil {
			s.recordStepError(report, "delete image rows", err)
			break
		}
		report.ImageRowsDeleted += int(deleted)
		if deleted < imageRowBatchSize {
			break
		}
	}

	// Step 4: object storage tree, under the wall-clock budget.
	objectsDeleted, partial := s.deleteObjects(ctx, galleryID, deadline, report)
	report.ObjectsDeleted = objectsDeleted
	report.Partial = partial

	// Step 5: order/workflow records.
	if deleted, err := s.assetRepo.DeleteOrders(ctx, galleryID); err != nil {
		s.recordStepError(report, "delete orders", err)
	} else {
		report.OrdersDeleted = int(deleted)
	}

	if report.Partial {
		// The record and schedule stay so the next run resumes where this
		// one stopped.
		s.logger.Warn("gallery deletion incomplete",
			zap.String("gallery_id", galleryID.String()),
			zap.Int("objects_deleted", report.ObjectsDeleted),
			zap.Strings("step_errors", report.StepErrors))
		return report, nil
	}

	// Step 6: the expiry trigger is spent. Absence is fine.
	if err := s.scheduler.CancelExpiry(ctx, galleryID); err != nil {
		s.recordStepError(report, "cancel schedule", err)
	}

	// Step 7: the gallery record itself, strictly last.
	if err := s.galleryRepo.HardDelete(ctx, galleryID); err != nil {
		s.recordStepError(report, "delete gallery record", err)
	}

	// Step 8: best-effort notifications; failures never fail the delete.
	if opts.SendNotifications && s.mail != nil && s.mail.Configured() {
		s.notify(gallery)
	}

	s.logger.Info("gallery deleted",
		zap.String("gallery_id", galleryID.String()),
		zap.Int("objects_deleted", report.ObjectsDeleted),
		zap.Int("image_rows_deleted", report.ImageRowsDeleted),
		zap.Int("orders_deleted", report.OrdersDeleted))
	return report, nil
}

// deadline leaves headroom below the invocation's own timeout so the
// cascade can stop cleanly instead of being killed mid-batch.
func (s *reaperService) deadline(ctx context.Context, budget time.Duration) time.Time {
	if budget == 0 {
		budget = defaultDeleteBudget
	}
	deadline := s.now().Add(budget)
	if ctxDeadline, ok := ctx.Deadline(); ok {
		if capped := ctxDeadline.Add(-budgetHeadroom); capped.Before(deadline) {
			deadline = capped
		}
	}
	return deadline
}

func (s *reaperService) deleteObjects(ctx context.Context, galleryID uuid.UUID, deadline time.Time, report *DeletionReport) (int, bool) {
	prefix := GalleryPrefix(galleryID)
	total := 0
	startAfter := ""

	for {
		if s.now().After(deadline) {
			return total, true
		}

		keys, err := s.objects.ListPage(ctx, prefix, startAfter, objectPageSize)
		if err != nil {
			// Objects are still out there; the run counts as partial so
			// the record survives for a retry.
			s.recordStepError(report, "list objects", err)
			return total, true
		}
		if len(keys) == 0 {
			return total, false
		}
		startAfter = keys[len(keys)-1]

		// Parallel delete batches shorten wall-clock time under the
		// budget; fan-out stays bounded.
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(deleteBatchFanout)
		deleted := make([]int, (len(keys)+objectDeleteBatchSz-1)/objectDeleteBatchSz)
		for batchIndex := 0; batchIndex*objectDeleteBatchSz < len(keys); batchIndex++ {
			start := batchIndex * objectDeleteBatchSz
			end := start + objectDeleteBatchSz
			if end > len(keys) {
				end = len(keys)
			}
			batch := keys[start:end]
			index := batchIndex
			group.Go(func() error {
				count, err := s.objects.DeleteBatch(groupCtx, batch)
				deleted[index] = count
				return err
			})
		}
		failed := group.Wait()
		if failed != nil {
			s.recordStepError(report, "delete objects", failed)
		}
		for _, count := range deleted {
			total += count
		}

		if failed != nil {
			// Pagination has moved past the failed keys; stop and let the
			// retry list them again from the start.
			return total, true
		}
		if len(keys) < objectPageSize {
			return total, false
		}
	}
}

func (s *reaperService) notify(gallery *db_models.Gallery) {
	recipients := make([]string, 0, 2)
	if gallery.OwnerEmail != "" {
		recipients = append(recipients, gallery.OwnerEmail)
	}
	if gallery.ClientEmail != "" {
		recipients = append(recipients, gallery.ClientEmail)
	}
	for _, to := range recipients {
		if err := s.mail.SendGalleryDeletedNotice(to, gallery.Title); err != nil {
			s.logger.Warn("deletion notice failed",
				zap.String("to", to), zap.Error(err))
		}
	}
}

func (s *reaperService) recordStepError(report *DeletionReport, step string, err error) {
	report.StepErrors = append(report.StepErrors, fmt.Sprintf("%s: %v", step, err))
	s.logger.Warn("deletion step failed", zap.String("step", step), zap.Error(err))
}

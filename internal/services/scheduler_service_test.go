package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"fotolio/internal/models/db_models"
	"fotolio/internal/repositories"
)

func TestScheduleExpiryUpsertsSingleJob(t *testing.T) {
	db := newTestDB(t)
	svc := NewSchedulerService(repositories.NewScheduledJobRepository(db), testLogger())
	ctx := context.Background()
	galleryID := uuid.New()

	first := time.Now().Add(24 * time.Hour).Unix()
	second := time.Now().Add(48 * time.Hour).Unix()

	if err := svc.ScheduleExpiry(ctx, galleryID, first); err != nil {
		t.Fatalf("first schedule: %v", err)
	}
	// Extending the gallery reuses the same job row.
	if err := svc.ScheduleExpiry(ctx, galleryID, second); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	var jobs []db_models.ScheduledJob
	if err := db.Where("gallery_id = ?", galleryID).Find(&jobs).Error; err != nil {
		t.Fatalf("load jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want exactly 1", len(jobs))
	}
	if jobs[0].RunAt != second {
		t.Fatalf("run_at = %d, want %d", jobs[0].RunAt, second)
	}
	if jobs[0].Name != ExpiryJobName(galleryID) {
		t.Fatalf("name = %s, want deterministic name", jobs[0].Name)
	}
}

func TestCancelExpiryIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewSchedulerService(repositories.NewScheduledJobRepository(db), testLogger())
	ctx := context.Background()
	galleryID := uuid.New()

	// Canceling a schedule that never existed is fine.
	if err := svc.CancelExpiry(ctx, galleryID); err != nil {
		t.Fatalf("cancel absent: %v", err)
	}

	if err := svc.ScheduleExpiry(ctx, galleryID, time.Now().Unix()); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := svc.CancelExpiry(ctx, galleryID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := svc.CancelExpiry(ctx, galleryID); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
}

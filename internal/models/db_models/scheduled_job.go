package db_models

import "github.com/google/uuid"

type ScheduledJobStatus string

const (
	JobStatusPending  ScheduledJobStatus = "pending"
	JobStatusDone     ScheduledJobStatus = "done"
	JobStatusCanceled ScheduledJobStatus = "canceled"
)

// ScheduledJob is one cancellable future job, named deterministically from
// the gallery id so scheduling and cancellation are both idempotent.
type ScheduledJob struct {
	BaseModel
	Name      string             `gorm:"uniqueIndex"` // gallery-expiry-{galleryID}
	GalleryID uuid.UUID          `gorm:"index"`
	RunAt     int64              `gorm:"index"`
	Status    ScheduledJobStatus `gorm:"index"`
}

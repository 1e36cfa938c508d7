package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type GalleryState string

const (
	GalleryStateDraft          GalleryState = "draft"
	GalleryStatePaymentPending GalleryState = "payment_pending"
	GalleryStateActive         GalleryState = "active"
	GalleryStateExpired        GalleryState = "expired"
)

// Gallery is the tenant-facing entity the settlement core reads and updates
// a narrow slice of: state, lock flag, expiry and storage limits. State
// flags are a cache; TransactionService is the source of truth for "paid".
type Gallery struct {
	BaseModel
	OwnerID    uuid.UUID    `gorm:"index"`
	Title      string
	State      GalleryState `gorm:"index"`
	PlanCode   string       `gorm:"index"`

	// Set while a gateway checkout is in flight; released on settlement.
	PaymentLocked bool

	ExpiresAt *int64 `gorm:"index"`

	StorageUsedBytes  int64
	StorageLimitBytes int64

	OwnerEmail             string
	ClientEmail            string
	ClientSelectionEnabled bool
}

// GalleryImage is one per-image metadata row; the reaper deletes these in
// bounded batches during teardown.
type GalleryImage struct {
	BaseModel
	GalleryID uuid.UUID `gorm:"index"`
	ObjectKey string
	SizeBytes int64
}

type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusCompleted OrderStatus = "completed"
)

// Order is the downstream workflow record. Galleries without a client
// selection flow get a default order created at payment time.
type Order struct {
	BaseModel
	GalleryID        uuid.UUID      `gorm:"index"`
	OwnerID          uuid.UUID      `gorm:"index"`
	Status           OrderStatus
	SelectedImageIDs datatypes.JSON `gorm:"type:jsonb;default:'[]'"`
}

package db_models

import (
	"gorm.io/datatypes"
)

// Plan prices a gallery tier and carries the limits applied to a gallery
// when its purchase settles.
type Plan struct {
	BaseModel
	Code        string `gorm:"uniqueIndex"` // e.g., "basic", "pro", "studio"
	Name        string
	Description *string

	PriceMinor int64  // 999 = $9.99
	Currency   string `gorm:"size:3"`

	DurationDays      int32 // gallery lifetime granted on payment
	StorageLimitBytes int64

	IsActive bool `gorm:"default:true"`

	// Optional: feature flags, limits, etc.
	Features datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

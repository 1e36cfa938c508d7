package db_models

import "github.com/google/uuid"

// PaymentAudit deduplicates gateway webhook deliveries. One row per
// processed payment id; the unique index is the reconciler's dedup gate.
type PaymentAudit struct {
	BaseModel
	PaymentID     string    `gorm:"uniqueIndex"`
	TransactionID uuid.UUID `gorm:"index"`
	EventType     string
	ProcessedAt   int64
}

package db_models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TxnTypeGalleryPurchase TransactionType = "gallery_purchase"
	TxnTypePlanUpgrade     TransactionType = "plan_upgrade"
	TxnTypeWalletTopUp     TransactionType = "wallet_topup"
	TxnTypeBonus           TransactionType = "bonus"
	TxnTypeRefund          TransactionType = "refund"
)

type TransactionStatus string

const (
	TxnStatusUnpaid   TransactionStatus = "unpaid"
	TxnStatusPaid     TransactionStatus = "paid"
	TxnStatusCanceled TransactionStatus = "canceled"
	TxnStatusFailed   TransactionStatus = "failed"
	TxnStatusRefunded TransactionStatus = "refunded"
)

type PaymentMethod string

const (
	MethodWallet  PaymentMethod = "wallet"
	MethodGateway PaymentMethod = "gateway"
	MethodMixed   PaymentMethod = "mixed"
)

// Transaction is one purchase intent. Invariant: WalletMinor + GatewayMinor
// == AmountMinor. Status moves one way (unpaid -> paid|canceled|failed,
// paid -> refunded) and is mutated only through TransactionService.
type Transaction struct {
	BaseModel
	OwnerID uuid.UUID         `gorm:"index"`
	Type    TransactionType   `gorm:"index"`
	Status  TransactionStatus `gorm:"index:idx_txn_gallery_status,priority:2;index"`
	Method  PaymentMethod

	AmountMinor  int64
	WalletMinor  int64
	GatewayMinor int64
	Currency     string `gorm:"size:3"`

	GalleryID *uuid.UUID `gorm:"index:idx_txn_gallery_status,priority:1"`

	// Gateway fields
	CheckoutSessionID string `gorm:"index"` // link local record <-> provider session

	// Important timestamps (unix seconds)
	PaidAt     *int64
	CanceledAt *int64

	// Plan codes, referral attribution, provider payload snapshots.
	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

// Transaction ids are UUIDv7 so listings sort by creation time.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		t.ID = id
	}
	now := time.Now().Unix()
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

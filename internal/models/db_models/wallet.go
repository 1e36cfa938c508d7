package db_models

import "github.com/google/uuid"

// Wallet holds one balance per user in minor currency units. The balance is
// never mutated directly: WalletService applies conditional increments and
// decrements paired with exactly one LedgerEntry each.
type Wallet struct {
	BaseModel
	UserID       uuid.UUID `gorm:"uniqueIndex"`
	BalanceMinor int64     `gorm:"not null;default:0"`
}

type LedgerEntryType string

const (
	LedgerDebit LedgerEntryType = "debit"
	LedgerTopUp LedgerEntryType = "top_up"
)

// LedgerEntry is an append-only audit record of one balance change.
// EntryID equals the triggering transaction id; the (user_id, entry_id)
// unique index is the idempotency gate for retried debits and credits.
type LedgerEntry struct {
	BaseModel
	UserID      uuid.UUID       `gorm:"index:uniq_ledger_user_entry,unique,priority:1"`
	EntryID     string          `gorm:"index:uniq_ledger_user_entry,unique,priority:2"`
	Type        LedgerEntryType `gorm:"index"`
	AmountMinor int64           // signed: debits negative, top-ups positive
	ReferenceID string
}

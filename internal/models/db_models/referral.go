package db_models

import "github.com/google/uuid"

// ReferralState tracks one referrer's progress toward reward milestones.
type ReferralState struct {
	BaseModel
	UserID       uuid.UUID `gorm:"uniqueIndex"`
	SuccessCount int
	BadgeEarned  bool
}

type ReferralMarkKind string

const (
	MarkGallery      ReferralMarkKind = "gallery"
	MarkReferredUser ReferralMarkKind = "referred_user"
)

// ReferralMark is an idempotency marker. Gallery marks absorb webhook
// redelivery; referred-user marks ensure a referred user's later purchases
// never increment the referrer's success counter again.
type ReferralMark struct {
	BaseModel
	ReferrerID uuid.UUID        `gorm:"index:uniq_referral_mark,unique,priority:1"`
	Kind       ReferralMarkKind `gorm:"index:uniq_referral_mark,unique,priority:2"`
	Key        uuid.UUID        `gorm:"index:uniq_referral_mark,unique,priority:3"`
}

type DiscountCodeType string

const (
	DiscountPercent10 DiscountCodeType = "percent_10"
	DiscountPercent25 DiscountCodeType = "percent_25"
)

// EarnedDiscountCode is a reward granted at referral milestones.
type EarnedDiscountCode struct {
	BaseModel
	UserID    uuid.UUID `gorm:"index"`
	Code      string    `gorm:"uniqueIndex"`
	Type      DiscountCodeType
	ExpiresAt int64
	Used      bool
	GalleryID *uuid.UUID // gallery the code was spent on, once used
}

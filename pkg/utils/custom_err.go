package utils

import "errors"

var (
	ErrInsufficientFunds       = errors.New("insufficient wallet balance")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrAlreadyPaid             = errors.New("gallery already paid")
	ErrUnpaidTransactionExists = errors.New("unpaid transaction already exists for gallery")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrInvalidTransition       = errors.New("invalid transaction status transition")
	ErrGalleryNotFound         = errors.New("gallery not found")
	ErrGalleryNotExpired       = errors.New("gallery not yet expired")
	ErrPlanNotFound            = errors.New("plan not found")
	ErrNotOwner                = errors.New("caller does not own this resource")
	ErrSelfReferral            = errors.New("self referral is not allowed")
	ErrDiscountNotEligible     = errors.New("discount code not eligible")
	ErrInvalidPage             = errors.New("invalid page parameter")
	ErrInvalidPageSize         = errors.New("invalid page size parameter")
	ErrDatabaseError           = errors.New("database error")
)

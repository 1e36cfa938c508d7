package request_models

type GalleryCheckoutRequest struct {
	GalleryID    string `json:"gallery_id" binding:"required"`
	DiscountCode string `json:"discount_code"`
	ReferrerID   string `json:"referrer_id"`
}

type TopUpRequest struct {
	AmountMinor int64 `json:"amount_minor" binding:"required"`
}

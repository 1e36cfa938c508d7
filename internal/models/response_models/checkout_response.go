package response_models

type CheckoutResponse struct {
	TransactionID string `json:"transaction_id"`
	AmountMinor   int64  `json:"amount_minor"`
	WalletMinor   int64  `json:"wallet_minor"`
	GatewayMinor  int64  `json:"gateway_minor"`
	Status        string `json:"status"`
	CheckoutURL   string `json:"checkout_url,omitempty"`
}

type WalletResponse struct {
	BalanceMinor int64 `json:"balance_minor"`
}

type TransactionResponse struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	Method       string `json:"method"`
	AmountMinor  int64  `json:"amount_minor"`
	WalletMinor  int64  `json:"wallet_minor"`
	GatewayMinor int64  `json:"gateway_minor"`
	GalleryID    string `json:"gallery_id,omitempty"`
	CreatedAt    int64  `json:"created_at"`
	PaidAt       *int64 `json:"paid_at,omitempty"`
}

type TransactionPage struct {
	Items    []TransactionResponse `json:"items"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	Total    int64                 `json:"total"`
}

type PlanResponse struct {
	Code              string `json:"code"`
	Name              string `json:"name"`
	PriceMinor        int64  `json:"price_minor"`
	Currency          string `json:"currency"`
	DurationDays      int32  `json:"duration_days"`
	StorageLimitBytes int64  `json:"storage_limit_bytes"`
}

type DeletionReportResponse struct {
	ObjectsDeleted   int      `json:"objects_deleted"`
	ImageRowsDeleted int      `json:"image_rows_deleted"`
	OrdersDeleted    int      `json:"orders_deleted"`
	Partial          bool     `json:"partial"`
	StepErrors       []string `json:"step_errors,omitempty"`
}

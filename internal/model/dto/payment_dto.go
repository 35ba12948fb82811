package dto

import "github.com/shopspring/decimal"

// InitiatePaymentResponse 发起支付响应
type InitiatePaymentResponse struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	RedirectURL   string          `json:"redirect_url"`
}

// PaymentCallbackRequest 支付网关回调
type PaymentCallbackRequest struct {
	MerchantTransactionID string `json:"merchantTransactionId" binding:"required"`
	ResultCode            string `json:"resultCode" binding:"required"`
}

// PaymentInfo 支付记录
type PaymentInfo struct {
	TransactionID   string          `json:"transaction_id"`
	AdvertisementID int64           `json:"advertisement_id"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	ResultCode      string          `json:"result_code,omitempty"`
	CompletedAt     string          `json:"completed_at,omitempty"`
	CreatedAt       string          `json:"created_at"`
}

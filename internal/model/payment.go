package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentPending = "pending"
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

// Payment 支付网关交易记录，TransactionID 即 merchantTransactionId
type Payment struct {
	ID              int64           `gorm:"primaryKey" json:"id"`
	TransactionID   string          `gorm:"size:64;uniqueIndex;not null" json:"transaction_id"`
	AdvertisementID int64           `gorm:"not null;index" json:"advertisement_id"`
	UserID          int64           `gorm:"not null;index" json:"user_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status          string          `gorm:"size:20;default:pending;index" json:"status"` // pending, success, failed
	ResultCode      string          `gorm:"size:50" json:"result_code,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

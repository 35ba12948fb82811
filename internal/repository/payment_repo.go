package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/namma_kumta_server/internal/model"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(payment *model.Payment) error {
	return r.db.Create(payment).Error
}

func (r *PaymentRepository) GetByTransactionID(txID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.Where("transaction_id = ?", txID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// CompletePending 结束一笔待支付交易，只有第一次回调会生效
func (r *PaymentRepository) CompletePending(txID, status, resultCode string, at time.Time) (bool, error) {
	result := r.db.Model(&model.Payment{}).
		Where("transaction_id = ? AND status = ?", txID, model.PaymentPending).
		Updates(map[string]interface{}{
			"status":       status,
			"result_code":  resultCode,
			"completed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListByAdvertisement 广告的支付记录，最新在前
func (r *PaymentRepository) ListByAdvertisement(adID int64) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := r.db.Where("advertisement_id = ?", adID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

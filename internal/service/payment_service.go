package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/namma_kumta_server/config"
	"github.com/qs3c/namma_kumta_server/internal/lifecycle"
	"github.com/qs3c/namma_kumta_server/internal/model"
	"github.com/qs3c/namma_kumta_server/internal/model/dto"
	"github.com/qs3c/namma_kumta_server/internal/pkg/logger"
	"github.com/qs3c/namma_kumta_server/internal/pkg/metrics"
	"github.com/qs3c/namma_kumta_server/internal/pkg/payment"
	"github.com/qs3c/namma_kumta_server/internal/repository"
)

var (
	ErrAlreadyPaid     = errors.New("广告已完成支付")
	ErrPaymentNotFound = errors.New("支付记录不存在")
	ErrInvalidCallback = errors.New("回调内容无效")
)

// 回调结果标签，落定时直接使用 success / failed
const (
	callbackDuplicate    = "duplicate"
	callbackBadSignature = "bad_signature"
	callbackUnknown      = "unknown"
)

type PaymentService struct {
	paymentRepo *repository.PaymentRepository
	adRepo      *repository.AdvertisementRepository
	ads         *AdService
	gateway     *payment.Gateway
	cfg         *config.Config
	log         *logger.Logger
	now         func() time.Time
}

func NewPaymentService(
	paymentRepo *repository.PaymentRepository,
	adRepo *repository.AdvertisementRepository,
	ads *AdService,
	gateway *payment.Gateway,
	cfg *config.Config,
	log *logger.Logger,
) *PaymentService {
	if log == nil {
		log = logger.Nop()
	}
	return &PaymentService{
		paymentRepo: paymentRepo,
		adRepo:      adRepo,
		ads:         ads,
		gateway:     gateway,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

func planPrice(p config.AdPlan) decimal.Decimal {
	return decimal.NewFromFloat(p.Price).Round(2)
}

// Initiate 广告主发起支付，金额取展示套餐价格
func (s *PaymentService) Initiate(ctx context.Context, adID, userID int64) (*dto.InitiatePaymentResponse, error) {
	ad, err := s.adRepo.GetByID(adID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, err
	}
	if ad.UserID != userID {
		return nil, lifecycle.ErrForbidden
	}
	if ad.PaymentStatus == lifecycle.PaymentPaid {
		return nil, ErrAlreadyPaid
	}
	if ad.Status == lifecycle.StatusRejected || ad.Status == lifecycle.StatusExpired {
		return nil, lifecycle.ErrInvalidState
	}

	plan, ok := s.cfg.Ads.PlanFor(ad.DurationDays)
	if !ok {
		return nil, ErrUnknownPlan
	}
	amount := planPrice(plan)

	p := &model.Payment{
		TransactionID:   payment.NewTransactionID(),
		AdvertisementID: ad.ID,
		UserID:          userID,
		Amount:          amount,
		Status:          model.PaymentPending,
	}
	if err := s.paymentRepo.Create(p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.log.Info("payment initiated", "ad_id", ad.ID, "transaction_id", p.TransactionID, "amount", amount.String())
	return &dto.InitiatePaymentResponse{
		TransactionID: p.TransactionID,
		Amount:        amount,
		RedirectURL:   s.gateway.PayURL(p.TransactionID, amount),
	}, nil
}

// HandleCallback 处理网关回调。
// 支付记录只从 pending 落定一次，之后的重复投递按已落定的结果重放到广告上。
func (s *PaymentService) HandleCallback(ctx context.Context, body []byte, signature string) (*dto.PaymentInfo, error) {
	if err := s.gateway.VerifyCallback(body, signature); err != nil {
		metrics.PaymentCallbacks.WithLabelValues(callbackBadSignature).Inc()
		s.log.Warn("payment callback rejected", err)
		return nil, err
	}

	var req dto.PaymentCallbackRequest
	if err := json.Unmarshal(body, &req); err != nil || req.MerchantTransactionID == "" {
		metrics.PaymentCallbacks.WithLabelValues(callbackUnknown).Inc()
		return nil, ErrInvalidCallback
	}

	p, err := s.paymentRepo.GetByTransactionID(req.MerchantTransactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.PaymentCallbacks.WithLabelValues(callbackUnknown).Inc()
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	status := model.PaymentFailed
	if s.gateway.IsSuccess(req.ResultCode) {
		status = model.PaymentSuccess
	}

	changed, err := s.paymentRepo.CompletePending(p.TransactionID, status, req.ResultCode, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("complete payment: %w", err)
	}
	if changed {
		metrics.PaymentCallbacks.WithLabelValues(status).Inc()
	} else {
		metrics.PaymentCallbacks.WithLabelValues(callbackDuplicate).Inc()
	}

	p, err = s.paymentRepo.GetByTransactionID(p.TransactionID)
	if err != nil {
		return nil, err
	}

	err = s.ads.OnPaymentResult(ctx, p.AdvertisementID, p.Status == model.PaymentSuccess)
	if err != nil {
		if !errors.Is(err, lifecycle.ErrNotFound) {
			return nil, err
		}
		// 广告已删除，回调照常确认
		s.log.Warn("payment callback for deleted advertisement", "ad_id", p.AdvertisementID, "transaction_id", p.TransactionID)
	}

	s.log.Info("payment callback handled",
		"transaction_id", p.TransactionID, "ad_id", p.AdvertisementID, "status", p.Status, "duplicate", !changed)
	return buildPaymentInfo(p), nil
}

// Get 查询支付记录，仅本人或管理员
func (s *PaymentService) Get(txID string, userID int64, isAdmin bool) (*dto.PaymentInfo, error) {
	p, err := s.paymentRepo.GetByTransactionID(txID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if !isAdmin && p.UserID != userID {
		return nil, lifecycle.ErrForbidden
	}
	return buildPaymentInfo(p), nil
}

// ListByAd 广告的支付记录
func (s *PaymentService) ListByAd(adID, userID int64, isAdmin bool) ([]*dto.PaymentInfo, error) {
	ad, err := s.adRepo.GetByID(adID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, err
	}
	if !isAdmin && ad.UserID != userID {
		return nil, lifecycle.ErrForbidden
	}

	payments, err := s.paymentRepo.ListByAdvertisement(adID)
	if err != nil {
		return nil, err
	}
	items := make([]*dto.PaymentInfo, 0, len(payments))
	for _, p := range payments {
		items = append(items, buildPaymentInfo(p))
	}
	return items, nil
}

func buildPaymentInfo(p *model.Payment) *dto.PaymentInfo {
	return &dto.PaymentInfo{
		TransactionID:   p.TransactionID,
		AdvertisementID: p.AdvertisementID,
		Amount:          p.Amount,
		Status:          p.Status,
		ResultCode:      p.ResultCode,
		CompletedAt:     formatTime(p.CompletedAt),
		CreatedAt:       p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

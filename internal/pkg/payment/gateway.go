// Package payment 支付网关签名与跳转地址
package payment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/qs3c/namma_kumta_server/config"
)

const headerSeparator = "###"

var (
	ErrMissingSignature = errors.New("missing X-VERIFY header")
	ErrBadSignature     = errors.New("invalid X-VERIFY signature")
)

type Gateway struct {
	cfg config.PaymentConfig
}

func NewGateway(cfg config.PaymentConfig) *Gateway {
	return &Gateway{cfg: cfg}
}

// NewTransactionID 生成 merchantTransactionId
func NewTransactionID() string {
	return "NK" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Checksum X-VERIFY 值：hex(sha256(body + saltKey)) + "###" + saltIndex
func (g *Gateway) Checksum(body []byte) string {
	h := sha256.New()
	h.Write(body)
	h.Write([]byte(g.cfg.SaltKey))
	return hex.EncodeToString(h.Sum(nil)) + headerSeparator + g.cfg.SaltIndex
}

// VerifyCallback 校验回调签名
func (g *Gateway) VerifyCallback(body []byte, header string) error {
	if header == "" {
		return ErrMissingSignature
	}
	expected := g.Checksum(body)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(header)) != 1 {
		return ErrBadSignature
	}
	return nil
}

// IsSuccess 网关结果码是否代表支付成功
func (g *Gateway) IsSuccess(resultCode string) bool {
	return resultCode == g.cfg.SuccessCode
}

// PayURL 支付页跳转地址，金额以最小货币单位（paise）传递
func (g *Gateway) PayURL(transactionID string, amount decimal.Decimal) string {
	q := url.Values{}
	q.Set("merchantId", g.cfg.MerchantID)
	q.Set("merchantTransactionId", transactionID)
	q.Set("amount", amount.Mul(decimal.NewFromInt(100)).Round(0).String())
	q.Set("callbackUrl", g.cfg.CallbackURL)

	sep := "?"
	if strings.Contains(g.cfg.PayPageURL, "?") {
		sep = "&"
	}
	return g.cfg.PayPageURL + sep + q.Encode()
}

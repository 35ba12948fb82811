package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/namma_kumta_server/internal/api/middleware"
	"github.com/qs3c/namma_kumta_server/internal/lifecycle"
	"github.com/qs3c/namma_kumta_server/internal/pkg/payment"
	"github.com/qs3c/namma_kumta_server/internal/pkg/response"
	"github.com/qs3c/namma_kumta_server/internal/service"
)

// 回调 body 上限
const maxCallbackBody = 64 << 10

// SignatureHeader 网关回调签名头
const SignatureHeader = "X-VERIFY"

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// Callback 支付网关回调，签名基于原始 body 计算
// POST /api/v1/payments/callback
func (h *PaymentHandler) Callback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		response.ParamError(c, "读取回调内容失败")
		return
	}

	info, err := h.paymentService.HandleCallback(c.Request.Context(), body, c.GetHeader(SignatureHeader))
	if err != nil {
		respondCallbackError(c, err)
		return
	}

	response.Success(c, info)
}

// respondCallbackError 网关按 HTTP 状态决定是否重投：
// 请求本身有问题时照常 200，处理失败时返回 5xx，重投会把已落定的支付结果再应用到广告上。
func respondCallbackError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, payment.ErrMissingSignature),
		errors.Is(err, payment.ErrBadSignature),
		errors.Is(err, service.ErrInvalidCallback),
		errors.Is(err, service.ErrPaymentNotFound):
		respondError(c, err)
	case errors.Is(err, lifecycle.ErrConflict):
		_ = c.Error(err)
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, response.CodeConflict, err.Error())
	default:
		_ = c.Error(err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, response.CodeServerError, "")
	}
}

// Get 查询支付记录
// GET /api/v1/payments/:txid
func (h *PaymentHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	info, err := h.paymentService.Get(c.Param("txid"), userID, middleware.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, info)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/namma_kumta_server/internal/api/middleware"
	"github.com/qs3c/namma_kumta_server/internal/model/dto"
	"github.com/qs3c/namma_kumta_server/internal/pkg/response"
	"github.com/qs3c/namma_kumta_server/internal/service"
)

type AdHandler struct {
	adService      *service.AdService
	paymentService *service.PaymentService
}

func NewAdHandler(adService *service.AdService, paymentService *service.PaymentService) *AdHandler {
	return &AdHandler{
		adService:      adService,
		paymentService: paymentService,
	}
}

// Plans 展示时长套餐
// GET /api/v1/ads/plans
func (h *AdHandler) Plans(c *gin.Context) {
	response.Success(c, h.adService.Plans())
}

// Submit 提交广告，进入待审核
// POST /api/v1/ads
func (h *AdHandler) Submit(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.SubmitAdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	info, err := h.adService.Submit(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "提交成功，等待审核", info)
}

// ListMine 我的广告
// GET /api/v1/ads/mine?status=
func (h *AdHandler) ListMine(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	page, pageSize := pageParams(c)

	items, total, err := h.adService.ListMine(userID, c.Query("status"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Get 广告详情，本人或管理员
// GET /api/v1/ads/:id
func (h *AdHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	info, err := h.adService.Get(id, userID, middleware.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, info)
}

// Update 广告主编辑
// PUT /api/v1/ads/:id
func (h *AdHandler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	var req dto.UpdateAdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	info, err := h.adService.EditByOwner(c.Request.Context(), id, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "更新成功", info)
}

// Delete 删除广告
// DELETE /api/v1/ads/:id
func (h *AdHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.adService.Delete(c.Request.Context(), id, userID, false); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// InitiatePayment 发起支付
// POST /api/v1/ads/:id/payments
func (h *AdHandler) InitiatePayment(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	resp, err := h.paymentService.Initiate(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// ListPayments 广告的支付记录
// GET /api/v1/ads/:id/payments
func (h *AdHandler) ListPayments(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	items, err := h.paymentService.ListByAd(id, userID, middleware.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, items)
}

// ListPublic 在线广告列表
// GET /api/v1/public/ads
func (h *AdHandler) ListPublic(c *gin.Context) {
	var query dto.PublicAdQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	page, pageSize := pageParams(c)

	items, total, err := h.adService.ListPublic(&query, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// GetPublic 在线广告详情
// GET /api/v1/public/ads/:id
func (h *AdHandler) GetPublic(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	info, err := h.adService.GetPublic(id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, info)
}

package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/namma_kumta_server/internal/api/middleware"
	"github.com/qs3c/namma_kumta_server/internal/model/dto"
	"github.com/qs3c/namma_kumta_server/internal/pkg/cron"
	"github.com/qs3c/namma_kumta_server/internal/pkg/response"
	"github.com/qs3c/namma_kumta_server/internal/service"
)

// SweepRunner 手动触发到期扫描，由 cron.Service 实现
type SweepRunner interface {
	RunNow(ctx context.Context) (int64, error)
}

type AdminHandler struct {
	adService *service.AdService
	sweeper   SweepRunner
}

func NewAdminHandler(adService *service.AdService, sweeper SweepRunner) *AdminHandler {
	return &AdminHandler{
		adService: adService,
		sweeper:   sweeper,
	}
}

// List 按状态列出广告
// GET /api/v1/admin/ads?status=
func (h *AdminHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)

	items, total, err := h.adService.ListByStatus(c.Query("status"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Get 管理端查看任意广告
// GET /api/v1/admin/ads/:id
func (h *AdminHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	info, err := h.adService.Get(id, 0, true)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, info)
}

// Approve 审核通过
// POST /api/v1/admin/ads/:id/approve
func (h *AdminHandler) Approve(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	info, err := h.adService.Approve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "审核通过", info)
}

// Reject 驳回
// POST /api/v1/admin/ads/:id/reject
func (h *AdminHandler) Reject(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req dto.RejectAdRequest
	// 驳回原因可选，允许空 body
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ParamError(c, err.Error())
			return
		}
	}

	info, err := h.adService.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已驳回", info)
}

// Delete 管理员删除广告
// DELETE /api/v1/admin/ads/:id
func (h *AdminHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	adminID, _ := middleware.GetUserID(c)

	if err := h.adService.Delete(c.Request.Context(), id, adminID, true); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// Stats 各状态广告数量
// GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.adService.Stats()
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, stats)
}

// Sweep 立即执行到期扫描，?dry_run=true 只统计不下线
// POST /api/v1/admin/sweep
func (h *AdminHandler) Sweep(c *gin.Context) {
	if c.Query("dry_run") == "true" {
		due, err := h.adService.CountDue()
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, dto.SweepResponse{Expired: due, DryRun: true})
		return
	}

	var (
		expired int64
		err     error
	)
	if h.sweeper != nil {
		expired, err = h.sweeper.RunNow(c.Request.Context())
	} else {
		expired, err = h.adService.SweepExpired(c.Request.Context())
	}
	if err != nil {
		if errors.Is(err, cron.ErrLockHeld) {
			response.DuplicateError(c, "已有扫描任务正在执行")
			return
		}
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "扫描完成", dto.SweepResponse{Expired: expired})
}

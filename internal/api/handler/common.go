package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/namma_kumta_server/internal/lifecycle"
	"github.com/qs3c/namma_kumta_server/internal/pkg/payment"
	"github.com/qs3c/namma_kumta_server/internal/pkg/response"
	"github.com/qs3c/namma_kumta_server/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageParams 读取 page / page_size，非法值回落到默认
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// idParam 解析路径中的 :id
func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "无效的ID")
		return 0, false
	}
	return id, true
}

// respondError 把服务层错误映射为响应码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, lifecycle.ErrForbidden):
		response.PermissionError(c, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidState):
		response.InvalidStateError(c, err.Error())
	case errors.Is(err, lifecycle.ErrPaymentRequired):
		response.PaymentRequiredError(c, err.Error())
	case errors.Is(err, lifecycle.ErrImmutableField):
		response.ImmutableFieldError(c, err.Error())
	case errors.Is(err, lifecycle.ErrConflict):
		response.ConflictError(c, err.Error())
	case errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrUsernameExists):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.AuthError(c, err.Error())
	case errors.Is(err, payment.ErrMissingSignature),
		errors.Is(err, payment.ErrBadSignature):
		response.AuthError(c, err.Error())
	case errors.Is(err, service.ErrUnknownPlan),
		errors.Is(err, service.ErrTooManyImages),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrEmptyMedia),
		errors.Is(err, service.ErrUnsupportedMedia),
		errors.Is(err, service.ErrMediaTooLarge),
		errors.Is(err, service.ErrInvalidCallback):
		response.ParamError(c, err.Error())
	default:
		_ = c.Error(err)
		response.ServerError(c, "")
	}
}

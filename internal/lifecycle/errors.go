package lifecycle

import "errors"

var (
	ErrNotFound        = errors.New("广告不存在")
	ErrInvalidState    = errors.New("当前状态不允许该操作")
	ErrForbidden       = errors.New("无权操作此广告")
	ErrPaymentRequired = errors.New("广告尚未支付，无法编辑")
	ErrImmutableField  = errors.New("广告已上线，展示时长不可修改")
	// ErrConflict 并发写入导致条件更新多次落空
	ErrConflict = errors.New("广告状态已变更，请稍后重试")
)

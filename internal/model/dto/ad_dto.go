package dto

import "github.com/shopspring/decimal"

// ContactInfo 联系方式
type ContactInfo struct {
	Name     string `json:"name" binding:"required,max=100"`
	Phone    string `json:"phone" binding:"required,max=20"`
	WhatsApp string `json:"whatsapp" binding:"omitempty,max=20"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// SubmitAdRequest 提交广告请求
type SubmitAdRequest struct {
	Title        string          `json:"title" binding:"required,max=200"`
	CategoryID   int64           `json:"category_id" binding:"required"`
	Price        decimal.Decimal `json:"price"`
	Description  string          `json:"description" binding:"max=5000"`
	Location     string          `json:"location" binding:"required,max=200"`
	Images       []string        `json:"images" binding:"omitempty,dive,url"`
	Video        string          `json:"video" binding:"omitempty,url"`
	Contact      ContactInfo     `json:"contact" binding:"required"`
	DurationDays int             `json:"duration_days" binding:"required,min=1"`
}

// UpdateAdRequest 广告主编辑请求，未传的字段保持不变
type UpdateAdRequest struct {
	Title        *string          `json:"title,omitempty" binding:"omitempty,max=200"`
	CategoryID   *int64           `json:"category_id,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Description  *string          `json:"description,omitempty" binding:"omitempty,max=5000"`
	Location     *string          `json:"location,omitempty" binding:"omitempty,max=200"`
	Images       []string         `json:"images,omitempty" binding:"omitempty,dive,url"`
	Video        *string          `json:"video,omitempty" binding:"omitempty,url"`
	Contact      *ContactInfo     `json:"contact,omitempty"`
	DurationDays *int             `json:"duration_days,omitempty" binding:"omitempty,min=1"`
}

// RejectAdRequest 驳回请求
type RejectAdRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// PublicAdQuery 公开广告列表筛选
type PublicAdQuery struct {
	CategoryID int64  `form:"category_id"`
	Location   string `form:"location"`
	Search     string `form:"search"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

// AdListQuery 管理端/个人列表筛选
type AdListQuery struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// SweepResponse 过期扫描结果
type SweepResponse struct {
	Expired int64 `json:"expired"`
	DryRun  bool  `json:"dry_run,omitempty"`
}

// MediaUploadResponse 媒体上传结果
type MediaUploadResponse struct {
	URL  string `json:"url"`
	Kind string `json:"kind"` // image, video
	Size int64  `json:"size"`
}

// AdPlanInfo 展示套餐
type AdPlanInfo struct {
	Days  int             `json:"days"`
	Price decimal.Decimal `json:"price"`
}

// AdInfo 广告详情/列表项
type AdInfo struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Title           string          `json:"title"`
	CategoryID      int64           `json:"category_id"`
	Price           decimal.Decimal `json:"price"`
	Description     string          `json:"description"`
	Location        string          `json:"location"`
	Images          []string        `json:"images"`
	Video           string          `json:"video,omitempty"`
	Contact         ContactInfo     `json:"contact"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status"`
	DurationDays    int             `json:"duration_days"`
	ActivatedAt     string          `json:"activated_at,omitempty"`
	ExpiresAt       string          `json:"expires_at,omitempty"`
	ApprovedDate    string          `json:"approved_date,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       string          `json:"created_at"`
}

// AdStats 管理端各状态数量
type AdStats struct {
	Counts map[string]int64 `json:"counts"`
	Due    int64            `json:"due"`
}

package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/qs3c/namma_kumta_server/internal/lifecycle"
)

// Contact 广告联系方式，列名带 contact_ 前缀
type Contact struct {
	Name     string `gorm:"size:100" json:"name"`
	Phone    string `gorm:"size:20" json:"phone"`
	WhatsApp string `gorm:"column:whatsapp;size:20" json:"whatsapp,omitempty"`
	Email    string `gorm:"size:100" json:"email,omitempty"`
}

type Advertisement struct {
	ID              int64                   `gorm:"primaryKey" json:"id"`
	UserID          int64                   `gorm:"not null;index" json:"user_id"`
	Title           string                  `gorm:"size:200;not null" json:"title"`
	CategoryID      int64                   `gorm:"index" json:"category_id"`
	Price           decimal.Decimal         `gorm:"type:decimal(12,2)" json:"price"`
	Description     string                  `gorm:"type:text" json:"description"`
	Location        string                  `gorm:"size:200;index" json:"location"`
	Images          StringArray             `gorm:"type:json" json:"images"`
	Video           string                  `gorm:"size:500" json:"video,omitempty"`
	Contact         Contact                 `gorm:"embedded;embeddedPrefix:contact_" json:"contact"`
	Status          lifecycle.Status        `gorm:"size:20;default:pending;index" json:"status"`
	PaymentStatus   lifecycle.PaymentStatus `gorm:"size:20;default:unpaid;index" json:"payment_status"`
	DurationDays    int                     `gorm:"not null" json:"duration_days"`
	ActivatedAt     *time.Time              `json:"activated_at,omitempty"`
	ExpiresAt       *time.Time              `gorm:"index" json:"expires_at,omitempty"`
	ApprovedDate    *time.Time              `json:"approved_date,omitempty"`
	RejectionReason string                  `gorm:"size:500" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time               `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func (Advertisement) TableName() string {
	return "advertisements"
}

// State 生命周期快照
func (a *Advertisement) State() lifecycle.State {
	return lifecycle.State{
		Status:        a.Status,
		PaymentStatus: a.PaymentStatus,
		DurationDays:  a.DurationDays,
		ActivatedAt:   a.ActivatedAt,
		ExpiresAt:     a.ExpiresAt,
		ApprovedAt:    a.ApprovedDate,
	}
}

// ApplyState 把状态机结果写回记录
func (a *Advertisement) ApplyState(s lifecycle.State) {
	a.Status = s.Status
	a.PaymentStatus = s.PaymentStatus
	a.DurationDays = s.DurationDays
	a.ActivatedAt = s.ActivatedAt
	a.ExpiresAt = s.ExpiresAt
	a.ApprovedDate = s.ApprovedAt
}

// MediaURLs 广告关联的全部媒体地址
func (a *Advertisement) MediaURLs() []string {
	urls := make([]string, 0, len(a.Images)+1)
	for _, u := range a.Images {
		if u != "" {
			urls = append(urls, u)
		}
	}
	if a.Video != "" {
		urls = append(urls, a.Video)
	}
	return urls
}

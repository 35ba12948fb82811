package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/namma_kumta_server/internal/lifecycle"
	"github.com/qs3c/namma_kumta_server/internal/model"
)

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := nextSeq()
	user := &model.User{
		Username:     fmt.Sprintf("testuser_%d", n),
		Email:        fmt.Sprintf("test_%d@example.com", n),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		Role:         model.RoleUser,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = hash
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// TestAd 创建测试广告（默认 pending / unpaid / 7 天）
func TestAd(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Advertisement)) *model.Advertisement {
	t.Helper()

	ad := &model.Advertisement{
		UserID:        userID,
		Title:         fmt.Sprintf("Test Ad %d", nextSeq()),
		CategoryID:    1,
		Price:         decimal.NewFromInt(1500),
		Description:   "second hand scooter",
		Location:      "Kumta",
		Images:        model.StringArray{},
		Contact:       model.Contact{Name: "Ravi", Phone: "9000000000"},
		Status:        lifecycle.StatusPending,
		PaymentStatus: lifecycle.PaymentUnpaid,
		DurationDays:  7,
	}

	for _, opt := range opts {
		opt(ad)
	}

	if err := db.Create(ad).Error; err != nil {
		t.Fatalf("Failed to create test advertisement: %v", err)
	}

	return ad
}

// WithAdStatus 设置广告状态
func WithAdStatus(status lifecycle.Status) func(*model.Advertisement) {
	return func(a *model.Advertisement) {
		a.Status = status
	}
}

// WithPaid 设置为已支付
func WithPaid() func(*model.Advertisement) {
	return func(a *model.Advertisement) {
		a.PaymentStatus = lifecycle.PaymentPaid
	}
}

// WithDuration 设置展示天数
func WithDuration(days int) func(*model.Advertisement) {
	return func(a *model.Advertisement) {
		a.DurationDays = days
	}
}

// WithActivatedAt 设置为已上线：active + paid，并按天数计算到期时间
func WithActivatedAt(at time.Time) func(*model.Advertisement) {
	return func(a *model.Advertisement) {
		at = at.UTC()
		expires := at.Add(time.Duration(a.DurationDays) * 24 * time.Hour)
		a.Status = lifecycle.StatusActive
		a.PaymentStatus = lifecycle.PaymentPaid
		a.ActivatedAt = &at
		a.ExpiresAt = &expires
		a.ApprovedDate = &at
	}
}

// WithMedia 设置媒体地址
func WithMedia(images []string, video string) func(*model.Advertisement) {
	return func(a *model.Advertisement) {
		a.Images = images
		a.Video = video
	}
}

// WithLocation 设置地区
func WithLocation(location string) func(*model.Advertisement) {
	return func(a *model.Advertisement) {
		a.Location = location
	}
}

// WithCategory 设置分类
func WithCategory(categoryID int64) func(*model.Advertisement) {
	return func(a *model.Advertisement) {
		a.CategoryID = categoryID
	}
}

// WithTitle 设置标题
func WithTitle(title string) func(*model.Advertisement) {
	return func(a *model.Advertisement) {
		a.Title = title
	}
}

// TestPayment 创建测试支付记录
func TestPayment(t *testing.T, db *gorm.DB, ad *model.Advertisement, status string) *model.Payment {
	t.Helper()

	payment := &model.Payment{
		TransactionID:   "NK" + uuid.New().String()[:8],
		AdvertisementID: ad.ID,
		UserID:          ad.UserID,
		Amount:          decimal.NewFromInt(99),
		Status:          status,
	}

	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("Failed to create test payment: %v", err)
	}

	return payment
}

package service

import (
	"context"

	"github.com/qs3c/namma_kumta_server/internal/model"
	"github.com/qs3c/namma_kumta_server/internal/pkg/email"
	"github.com/qs3c/namma_kumta_server/internal/pkg/logger"
	"github.com/qs3c/namma_kumta_server/internal/pkg/pubsub"
	"github.com/qs3c/namma_kumta_server/internal/repository"
)

// EventPublisher 广告状态事件发布
type EventPublisher interface {
	PublishAdEvent(ctx context.Context, msg *pubsub.AdEventMessage) error
}

// Mailer 状态通知邮件
type Mailer interface {
	SendAdStatus(to string, n email.AdStatusNotice) error
}

// Notifier 生命周期变更后通知广告主。
// 通知失败只记日志，不影响已经落库的状态。
type Notifier struct {
	publisher EventPublisher
	mailer    Mailer
	userRepo  *repository.UserRepository
	log       *logger.Logger
}

// NewNotifier publisher 和 mailer 都可以为 nil
func NewNotifier(publisher EventPublisher, mailer Mailer, userRepo *repository.UserRepository, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{
		publisher: publisher,
		mailer:    mailer,
		userRepo:  userRepo,
		log:       log,
	}
}

// AdChanged 依次发送 events 对应的通知。
// 审核通过即上线时只发上线邮件，"支付后上线"的审核邮件在这里不成立。
func (n *Notifier) AdChanged(ctx context.Context, ad *model.Advertisement, events ...string) {
	if n == nil {
		return
	}

	activated := false
	for _, event := range events {
		if event == "activate" {
			activated = true
		}
	}

	for _, event := range events {
		if n.publisher != nil {
			err := n.publisher.PublishAdEvent(ctx, &pubsub.AdEventMessage{
				UserID:          ad.UserID,
				AdvertisementID: ad.ID,
				Title:           ad.Title,
				Event:           event,
				Status:          string(ad.Status),
				PaymentStatus:   string(ad.PaymentStatus),
			})
			if err != nil {
				n.log.Warn("failed to publish ad event", err, "ad_id", ad.ID, "event", event)
			}
		}
		if event == "approve" && activated {
			continue
		}
		n.sendMail(ad, event)
	}
}

func (n *Notifier) sendMail(ad *model.Advertisement, event string) {
	if n.mailer == nil || n.userRepo == nil {
		return
	}
	switch event {
	case "approve", "reject", "activate", "expire":
	default:
		return
	}

	owner, err := n.userRepo.GetByID(ad.UserID)
	if err != nil {
		n.log.Warn("failed to load ad owner for email", err, "ad_id", ad.ID)
		return
	}

	err = n.mailer.SendAdStatus(owner.Email, email.AdStatusNotice{
		Username:  owner.Username,
		AdTitle:   ad.Title,
		Event:     event,
		Reason:    ad.RejectionReason,
		ExpiresAt: ad.ExpiresAt,
	})
	if err != nil {
		n.log.Warn("failed to send ad status email", err, "ad_id", ad.ID, "event", event)
	}
}

package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelAdEvents = "ad_events"
)

// AdEventMessage 广告状态变更消息
type AdEventMessage struct {
	Type            string    `json:"type"`
	UserID          int64     `json:"user_id"`
	AdvertisementID int64     `json:"advertisement_id"`
	Title           string    `json:"title,omitempty"`
	Event           string    `json:"event"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	Message         string    `json:"message,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// 事件对应的提示文案
var EventMessages = map[string]string{
	"approve":         "广告已通过审核",
	"reject":          "广告未通过审核",
	"payment_success": "支付成功",
	"payment_failed":  "支付失败，请重试",
	"activate":        "广告已上线",
	"expire":          "广告展示已到期",
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishAdEvent 发布广告状态消息
func (p *Publisher) PublishAdEvent(ctx context.Context, msg *AdEventMessage) error {
	msg.Type = "ad_status"

	if msg.Message == "" {
		if message, ok := EventMessages[msg.Event]; ok {
			msg.Message = message
		}
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal ad event: %w", err)
	}

	return p.client.Publish(ctx, ChannelAdEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅广告状态消息，直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*AdEventMessage)) error {
	pubsub := s.client.Subscribe(ctx, ChannelAdEvents)
	defer pubsub.Close()

	// 等待订阅确认，避免丢掉紧接着发布的消息
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event AdEventMessage
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}

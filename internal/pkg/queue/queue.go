package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 放弃处理的消息保留在 <queue>:dead，供人工排查
const deadLetterSuffix = ":dead"

type Queue struct {
	client    *redis.Client
	queueName string
}

// MediaCleanupMessage 广告删除后待清理的媒体
type MediaCleanupMessage struct {
	AdvertisementID int64     `json:"advertisement_id"`
	UserID          int64     `json:"user_id"`
	URLs            []string  `json:"urls"`
	Attempt         int       `json:"attempt"`
	EnqueuedAt      time.Time `json:"enqueued_at"`
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// Push 将任务加入队列
func (q *Queue) Push(ctx context.Context, msg *MediaCleanupMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop 从队列获取任务（阻塞）。无法解析的消息转入死信列表，不会被反复取出。
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*MediaCleanupMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时，无任务
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var msg MediaCleanupMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		if buryErr := q.client.LPush(ctx, q.deadLetterName(), result[1]).Err(); buryErr != nil {
			return nil, fmt.Errorf("failed to bury malformed message: %w", buryErr)
		}
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}

// Bury 放弃重试的消息写入死信列表
func (q *Queue) Bury(ctx context.Context, msg *MediaCleanupMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return q.client.LPush(ctx, q.deadLetterName(), data).Err()
}

// Length 获取队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}

// DeadLetters 死信数量
func (q *Queue) DeadLetters(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.deadLetterName()).Result()
}

func (q *Queue) deadLetterName() string {
	return q.queueName + deadLetterSuffix
}

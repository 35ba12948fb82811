package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/qs3c/namma_kumta_server/internal/pkg/logger"
	"github.com/qs3c/namma_kumta_server/internal/pkg/metrics"
	"github.com/qs3c/namma_kumta_server/internal/pkg/oss"
	"github.com/qs3c/namma_kumta_server/internal/pkg/queue"
)

// 单条消息最多处理次数（含首次）
const maxAttempts = 3

// ErrGaveUp 多次重试后仍有对象删除失败
var ErrGaveUp = errors.New("media cleanup gave up after max attempts")

// ObjectStorage 对象存储删除
type ObjectStorage interface {
	DeleteByURL(url string) error
}

// Requeuer 失败的部分重新入队，放弃时转入死信
type Requeuer interface {
	Push(ctx context.Context, msg *queue.MediaCleanupMessage) error
	Bury(ctx context.Context, msg *queue.MediaCleanupMessage) error
}

// Processor 媒体清理处理器
type Processor struct {
	storage ObjectStorage
	requeue Requeuer
	log     *logger.Logger
}

// NewProcessor 创建媒体清理处理器
func NewProcessor(storage ObjectStorage, requeue Requeuer, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Nop()
	}
	return &Processor{
		storage: storage,
		requeue: requeue,
		log:     log,
	}
}

// Process 删除消息中的全部媒体，失败的地址带着次数重新入队
func (p *Processor) Process(ctx context.Context, msg *queue.MediaCleanupMessage) error {
	var failed []string
	for i, url := range msg.URLs {
		if ctx.Err() != nil {
			failed = append(failed, msg.URLs[i:]...)
			break
		}
		if err := p.storage.DeleteByURL(url); err != nil {
			if errors.Is(err, oss.ErrForeignObject) {
				// 重试也不会成功
				p.log.Warn("skipping foreign media url", err, "ad_id", msg.AdvertisementID, "url", url)
				continue
			}
			metrics.MediaCleanup.WithLabelValues(metrics.OutcomeError).Inc()
			p.log.Warn("failed to delete media", err, "ad_id", msg.AdvertisementID, "url", url, "attempt", msg.Attempt)
			failed = append(failed, url)
			continue
		}
		metrics.MediaCleanup.WithLabelValues(metrics.OutcomeOK).Inc()
	}

	if len(failed) == 0 {
		p.log.Info("media cleanup completed", "ad_id", msg.AdvertisementID, "objects", len(msg.URLs))
		return nil
	}

	retry := *msg
	retry.URLs = failed
	retry.Attempt = msg.Attempt + 1

	if retry.Attempt >= maxAttempts || p.requeue == nil {
		p.log.Error("media cleanup abandoned", "ad_id", msg.AdvertisementID, "urls", failed)
		if p.requeue != nil {
			if err := p.requeue.Bury(context.Background(), &retry); err != nil {
				p.log.Error("failed to bury media cleanup", err, "ad_id", msg.AdvertisementID)
			}
		}
		return fmt.Errorf("%w: %d objects left", ErrGaveUp, len(failed))
	}

	// ctx 可能已取消，重新入队不跟随它
	if err := p.requeue.Push(context.Background(), &retry); err != nil {
		return fmt.Errorf("requeue media cleanup: %w", err)
	}
	return fmt.Errorf("%d media objects requeued", len(failed))
}

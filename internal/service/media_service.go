package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/qs3c/namma_kumta_server/config"
	"github.com/qs3c/namma_kumta_server/internal/model"
	"github.com/qs3c/namma_kumta_server/internal/model/dto"
	"github.com/qs3c/namma_kumta_server/internal/pkg/logger"
	"github.com/qs3c/namma_kumta_server/internal/pkg/metrics"
	"github.com/qs3c/namma_kumta_server/internal/pkg/queue"
)

var (
	ErrEmptyMedia         = errors.New("文件为空")
	ErrUnsupportedMedia   = errors.New("仅支持 JPEG/PNG/WEBP 图片或 MP4 视频")
	ErrMediaTooLarge      = errors.New("文件过大")
	ErrStorageUnavailable = errors.New("媒体存储未配置")
)

const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
)

// 嗅探得到的类型对应的对象扩展名
var mediaExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
}

// ObjectStorage 对象存储（OSS）
type ObjectStorage interface {
	UploadAdMedia(userID int64, data []byte, ext string) (string, error)
	DeleteByURL(url string) error
}

// CleanupQueue 媒体清理队列
type CleanupQueue interface {
	Push(ctx context.Context, msg *queue.MediaCleanupMessage) error
}

type MediaService struct {
	storage ObjectStorage
	queue   CleanupQueue
	cfg     config.UploadConfig
	log     *logger.Logger
}

// NewMediaService storage 为 nil 时拒绝上传；queue 为 nil 时删除广告同步清理媒体
func NewMediaService(storage ObjectStorage, cleanupQueue CleanupQueue, cfg config.UploadConfig, log *logger.Logger) *MediaService {
	if log == nil {
		log = logger.Nop()
	}
	return &MediaService{
		storage: storage,
		queue:   cleanupQueue,
		cfg:     cfg,
		log:     log,
	}
}

// Upload 校验类型和大小后上传，类型按内容嗅探，不信任客户端声明
func (s *MediaService) Upload(userID int64, data []byte) (*dto.MediaUploadResponse, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if len(data) == 0 {
		return nil, ErrEmptyMedia
	}

	contentType := http.DetectContentType(data)
	kind, limit, ok := s.classify(contentType)
	if !ok {
		return nil, ErrUnsupportedMedia
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrMediaTooLarge
	}

	url, err := s.storage.UploadAdMedia(userID, data, mediaExtensions[contentType])
	if err != nil {
		return nil, err
	}

	return &dto.MediaUploadResponse{
		URL:  url,
		Kind: kind,
		Size: int64(len(data)),
	}, nil
}

// MaxUploadSize 单个文件允许的最大字节数
func (s *MediaService) MaxUploadSize() int64 {
	if s.cfg.MaxVideoSize > s.cfg.MaxImageSize {
		return s.cfg.MaxVideoSize
	}
	return s.cfg.MaxImageSize
}

func (s *MediaService) classify(contentType string) (kind string, limit int64, ok bool) {
	if _, known := mediaExtensions[contentType]; !known {
		return "", 0, false
	}
	if contains(s.cfg.AllowedImageTypes, contentType) {
		return MediaKindImage, s.cfg.MaxImageSize, true
	}
	if contains(s.cfg.AllowedVideoTypes, contentType) {
		return MediaKindVideo, s.cfg.MaxVideoSize, true
	}
	return "", 0, false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// RemoveAdMedia 广告删除后清理媒体，优先走队列，入队失败时同步删除
func (s *MediaService) RemoveAdMedia(ctx context.Context, ad *model.Advertisement) {
	urls := ad.MediaURLs()
	if len(urls) == 0 {
		return
	}

	if s.queue != nil {
		err := s.queue.Push(ctx, &queue.MediaCleanupMessage{
			AdvertisementID: ad.ID,
			UserID:          ad.UserID,
			URLs:            urls,
			EnqueuedAt:      time.Now().UTC(),
		})
		if err == nil {
			return
		}
		s.log.Warn("failed to enqueue media cleanup, deleting inline", err, "ad_id", ad.ID)
	}

	if s.storage == nil {
		return
	}
	for _, url := range urls {
		if err := s.storage.DeleteByURL(url); err != nil {
			metrics.MediaCleanup.WithLabelValues(metrics.OutcomeError).Inc()
			s.log.Warn("failed to delete ad media", err, "ad_id", ad.ID, "url", url)
			continue
		}
		metrics.MediaCleanup.WithLabelValues(metrics.OutcomeOK).Inc()
	}
}

package oss

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"

	"github.com/qs3c/namma_kumta_server/config"
)

// 广告媒体统一放在该前缀下
const adMediaPrefix = "ads/"

// ErrForeignObject 地址不指向本服务上传的广告媒体
var ErrForeignObject = errors.New("object is not ad media")

type Client struct {
	client     *oss.Client
	bucket     *oss.Bucket
	bucketName string
	cdnDomain  string
}

func NewClient(cfg *config.OSSConfig) (*Client, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &Client{
		client:     client,
		bucket:     bucket,
		bucketName: cfg.BucketName,
		cdnDomain:  cfg.CDNDomain,
	}, nil
}

// AdMediaKey 广告媒体的对象路径：ads/{user_id}/{uuid}{ext}
func AdMediaKey(userID int64, ext string) string {
	return fmt.Sprintf("%s%d/%s%s", adMediaPrefix, userID, uuid.New().String(), strings.ToLower(ext))
}

// UploadAdMedia 上传广告图片或视频
func (c *Client) UploadAdMedia(userID int64, data []byte, ext string) (string, error) {
	objectKey := AdMediaKey(userID, ext)

	err := c.bucket.PutObject(objectKey, bytes.NewReader(data), oss.ContentType(ContentType(ext)))
	if err != nil {
		return "", fmt.Errorf("failed to upload ad media: %w", err)
	}

	return c.GetURL(objectKey), nil
}

// Delete 删除文件
func (c *Client) Delete(objectKey string) error {
	err := c.bucket.DeleteObject(objectKey)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// DeleteByURL 按访问地址删除广告媒体，ads/ 以外的对象一律拒绝
func (c *Client) DeleteByURL(rawURL string) error {
	key := c.ExtractObjectKey(rawURL)
	if !strings.HasPrefix(key, adMediaPrefix) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %s", ErrForeignObject, rawURL)
	}
	return c.Delete(key)
}

// GetURL 获取文件访问 URL
func (c *Client) GetURL(objectKey string) string {
	if c.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", c.cdnDomain, objectKey)
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(c.client.Config.Endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", c.bucketName, endpoint, objectKey)
}

// ContentType 根据扩展名获取 Content-Type
func ContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

// ExtractObjectKey 从 CDN 或 bucket 地址中取出 object key，无法解析时原样返回
func (c *Client) ExtractObjectKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.TrimPrefix(rawURL, "/")
	}
	return strings.TrimPrefix(u.Path, "/")
}

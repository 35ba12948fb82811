package oss

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/namma_kumta_server/config"
)

func newTestClient(t *testing.T, cdn string) *Client {
	t.Helper()

	// oss.New 不会发起网络请求
	c, err := NewClient(&config.OSSConfig{
		Endpoint:        "https://oss-ap-south-1.aliyuncs.com",
		AccessKeyID:     "id",
		AccessKeySecret: "secret",
		BucketName:      "namma-kumta-media",
		CDNDomain:       cdn,
	})
	require.NoError(t, err)
	return c
}

func TestAdMediaKey(t *testing.T) {
	key := AdMediaKey(42, ".JPG")
	assert.Regexp(t, regexp.MustCompile(`^ads/42/[0-9a-f-]{36}\.jpg$`), key)
	assert.NotEqual(t, key, AdMediaKey(42, ".jpg"))
}

func TestGetURL(t *testing.T) {
	t.Run("cdn domain", func(t *testing.T) {
		c := newTestClient(t, "cdn.nammakumta.in")
		assert.Equal(t, "https://cdn.nammakumta.in/ads/1/a.jpg", c.GetURL("ads/1/a.jpg"))
	})

	t.Run("bucket endpoint", func(t *testing.T) {
		c := newTestClient(t, "")
		assert.Equal(t, "https://namma-kumta-media.oss-ap-south-1.aliyuncs.com/ads/1/a.jpg", c.GetURL("ads/1/a.jpg"))
	})
}

func TestExtractObjectKey(t *testing.T) {
	c := newTestClient(t, "cdn.nammakumta.in")

	assert.Equal(t, "ads/1/a.jpg", c.ExtractObjectKey("https://cdn.nammakumta.in/ads/1/a.jpg"))
	assert.Equal(t, "ads/2/b.mp4", c.ExtractObjectKey("https://namma-kumta-media.oss-ap-south-1.aliyuncs.com/ads/2/b.mp4"))
	assert.Equal(t, "c.png", c.ExtractObjectKey("c.png"))
	assert.Equal(t, "ads/3/d.jpg", c.ExtractObjectKey("https://cdn.nammakumta.in/ads/3/d.jpg?x-oss-process=resize"))

	// GetURL 与 ExtractObjectKey 互逆
	key := AdMediaKey(9, ".webp")
	assert.Equal(t, key, c.ExtractObjectKey(c.GetURL(key)))
}

func TestDeleteByURL_RejectsForeignObjects(t *testing.T) {
	c := newTestClient(t, "cdn.nammakumta.in")

	for _, u := range []string{
		"https://cdn.nammakumta.in/backups/db.sql",
		"https://cdn.nammakumta.in/ads/../backups/db.sql",
		"avatar.png",
	} {
		assert.ErrorIs(t, c.DeleteByURL(u), ErrForeignObject, u)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType(".jpeg"))
	assert.Equal(t, "image/png", ContentType(".PNG"))
	assert.Equal(t, "image/webp", ContentType(".webp"))
	assert.Equal(t, "video/mp4", ContentType(".mp4"))
	assert.Equal(t, "application/octet-stream", ContentType(".exe"))
}

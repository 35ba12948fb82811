package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/namma_kumta_server/internal/api/middleware"
	"github.com/qs3c/namma_kumta_server/internal/pkg/response"
	"github.com/qs3c/namma_kumta_server/internal/service"
)

type MediaHandler struct {
	mediaService *service.MediaService
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
	}
}

// Upload 上传广告图片或视频，返回可直接写入广告的地址
// POST /api/v1/ads/media  (multipart, 字段名 file)
func (h *MediaHandler) Upload(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.ParamError(c, "请选择要上传的文件")
		return
	}
	defer file.Close()

	limit := h.mediaService.MaxUploadSize()
	if limit > 0 && header.Size > limit {
		response.ParamError(c, service.ErrMediaTooLarge.Error())
		return
	}

	reader := io.Reader(file)
	if limit > 0 {
		reader = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		response.ParamError(c, "读取文件失败")
		return
	}

	resp, err := h.mediaService.Upload(userID, data)
	if err != nil {
		if errors.Is(err, service.ErrStorageUnavailable) {
			response.ServerError(c, err.Error())
			return
		}
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "上传成功", resp)
}

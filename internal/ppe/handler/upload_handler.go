package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/plantsafe/ppeflow/internal/ppe/service"
)

// UploadHandler 附件上传处理器
type UploadHandler struct {
	svc *service.AttachmentService
}

func NewUploadHandler(svc *service.AttachmentService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// Upload 上传附件，返回可存入申请的URL
// POST /api/v1/uploads
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}

	// 10MB cap, photos only need a fraction of that
	if fileHeader.Size > 10<<20 {
		BadRequest(c, "file too large, 10MB max")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "open upload: "+err.Error())
		return
	}
	defer file.Close()

	url, err := h.svc.Upload(c.Request.Context(), file, fileHeader.Filename,
		fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		InternalError(c, "upload failed: "+err.Error())
		return
	}
	Success(c, gin.H{"url": url})
}

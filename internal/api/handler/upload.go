package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khotba/khotba_server/config"
	"github.com/khotba/khotba_server/internal/pkg/response"
	"github.com/khotba/khotba_server/internal/service"
)

// multipartOverhead is the slack allowed on top of the file size for part headers.
const multipartOverhead = 1 << 20

type UploadHandler struct {
	uploadService *service.UploadService
	cfg           *config.Config
	logger        *slog.Logger
}

func NewUploadHandler(uploadService *service.UploadService, cfg *config.Config, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		cfg:           cfg,
		logger:        logger,
	}
}

// Limits GET /api/upload/limits
func (h *UploadHandler) Limits(c *gin.Context) {
	response.Success(c, h.uploadService.Limits())
}

// Upload POST /api/upload (multipart, field "file")
// The part is streamed straight to disk; it is never buffered whole.
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Upload.MaxSize+multipartOverhead)

	reader, err := c.Request.MultipartReader()
	if err != nil {
		response.ParamError(c, "multipart form with a file field is required")
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				response.PayloadTooLargeError(c, "")
				return
			}
			response.ParamError(c, "malformed multipart body")
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		resp, err := h.uploadService.Save(c.Request.Context(), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		response.Success(c, resp)
		return
	}

	response.ParamError(c, "file is required")
}

package handler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/khotba/khotba_server/internal/model"
	"github.com/khotba/khotba_server/internal/pkg/response"
	"github.com/khotba/khotba_server/internal/service"
)

type VideoHandler struct {
	videoService *service.VideoService
	logger       *slog.Logger
}

func NewVideoHandler(videoService *service.VideoService, logger *slog.Logger) *VideoHandler {
	return &VideoHandler{
		videoService: videoService,
		logger:       logger,
	}
}

// SubtitleVideo POST /api/subtitle-video/:id?lang=arabic|french
// Replies with the mp4 as an attachment, rendering it first on a cache miss.
func (h *VideoHandler) SubtitleVideo(c *gin.Context) {
	lang := c.DefaultQuery("lang", model.LangArabic)

	file, err := h.videoService.Render(c.Request.Context(), c.Param("id"), lang)
	if err != nil {
		if errors.Is(err, service.ErrNoLanguageSegments) {
			response.ParamError(c, fmt.Sprintf("No %s segments available for this analysis.", lang))
			return
		}
		writeError(c, h.logger, err)
		return
	}

	c.Header("Content-Type", "video/mp4")
	c.FileAttachment(file.Path, file.Filename)
}

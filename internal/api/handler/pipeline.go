package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/khotba/khotba_server/internal/model/dto"
	"github.com/khotba/khotba_server/internal/pkg/response"
	"github.com/khotba/khotba_server/internal/service"
)

type PipelineHandler struct {
	pipelineService *service.PipelineService
	logger          *slog.Logger
}

func NewPipelineHandler(pipelineService *service.PipelineService, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{
		pipelineService: pipelineService,
		logger:          logger,
	}
}

// VideoInfo POST /api/video/info
func (h *PipelineHandler) VideoInfo(c *gin.Context) {
	var req dto.VideoInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "url is required")
		return
	}

	info, err := h.pipelineService.VideoInfo(c.Request.Context(), req.URL)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, info)
}

// Transcribe POST /api/transcribe
func (h *PipelineHandler) Transcribe(c *gin.Context) {
	var req dto.TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.pipelineService.Transcribe(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, resp)
}

// Translate POST /api/translate
func (h *PipelineHandler) Translate(c *gin.Context) {
	var req dto.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.pipelineService.Translate(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, resp)
}

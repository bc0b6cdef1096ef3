package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/khotba/khotba_server/internal/model/dto"
	"github.com/khotba/khotba_server/internal/pkg/response"
	"github.com/khotba/khotba_server/internal/service"
)

type HistoryHandler struct {
	historyService *service.HistoryService
	logger         *slog.Logger
}

func NewHistoryHandler(historyService *service.HistoryService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
		logger:         logger,
	}
}

// List GET /api/history?page=1&limit=10
func (h *HistoryHandler) List(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		response.ParamError(c, "page must be a positive integer")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultPageLimit)))
	if err != nil || limit < 1 || limit > service.MaxPageLimit {
		response.ParamError(c, "limit must be between 1 and 100")
		return
	}

	resp, err := h.historyService.List(page, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.SuccessPage(c, resp.Total, resp.Page, resp.Limit, resp.Items)
}

// Get GET /api/history/:id
func (h *HistoryHandler) Get(c *gin.Context) {
	detail, err := h.historyService.Get(c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, detail)
}

// Update PATCH /api/history/:id
func (h *HistoryHandler) Update(c *gin.Context) {
	var req dto.UpdateHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.historyService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, resp)
}

// Delete DELETE /api/history/:id
func (h *HistoryHandler) Delete(c *gin.Context) {
	if err := h.historyService.Delete(c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{"success": true})
}

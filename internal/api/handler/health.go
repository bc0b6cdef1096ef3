package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/khotba/khotba_server/internal/pkg/response"
)

// Health GET /api/health
func Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khotba/khotba_server/internal/audio"
	"github.com/khotba/khotba_server/internal/pkg/response"
	"github.com/khotba/khotba_server/internal/service"
	"github.com/khotba/khotba_server/internal/source"
)

// writeError maps service errors onto the response envelope.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		stageErr *service.StageError
		rangeErr *audio.RangeError
		maxErr   *http.MaxBytesError
	)

	switch {
	case errors.Is(err, service.ErrAnalysisNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, source.ErrUploadNotFound), errors.Is(err, service.ErrSourceUnavailable):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		response.PayloadTooLargeError(c, service.ClientMessage(err))
	case errors.As(err, &maxErr):
		response.PayloadTooLargeError(c, "")
	case errors.Is(err, service.ErrUnsupportedFormat),
		errors.Is(err, service.ErrUnreadableVideo),
		errors.Is(err, service.ErrInvalidVideo),
		errors.Is(err, service.ErrVideoTooLong):
		response.ParamError(c, service.ClientMessage(err))
	case errors.As(err, &rangeErr):
		response.ParamError(c, rangeErr.Msg)
	case service.IsClientError(err):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrRetranslation):
		response.ServerError(c, service.ErrRetranslation.Error())
	case errors.As(err, &stageErr):
		response.ServerError(c, stageErr.Message())
	default:
		logger.Error("unexpected error", "path", c.Request.URL.Path, "error", err)
		response.ServerError(c, "")
	}
}

package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/khotba/khotba_server/config"
	"github.com/khotba/khotba_server/internal/api/handler"
	"github.com/khotba/khotba_server/internal/api/middleware"
)

type Router struct {
	pipelineHandler  *handler.PipelineHandler
	uploadHandler    *handler.UploadHandler
	historyHandler   *handler.HistoryHandler
	videoHandler     *handler.VideoHandler
	websocketHandler *handler.WebSocketHandler
	cfg              *config.Config
	logger           *slog.Logger
}

func NewRouter(
	pipelineHandler *handler.PipelineHandler,
	uploadHandler *handler.UploadHandler,
	historyHandler *handler.HistoryHandler,
	videoHandler *handler.VideoHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
	logger *slog.Logger,
) *Router {
	return &Router{
		pipelineHandler:  pipelineHandler,
		uploadHandler:    uploadHandler,
		historyHandler:   historyHandler,
		videoHandler:     videoHandler,
		websocketHandler: websocketHandler,
		cfg:              cfg,
		logger:           logger,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(r.logger))
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/ws", r.websocketHandler.Handle)

		api.POST("/video/info", r.pipelineHandler.VideoInfo)
		api.POST("/transcribe", r.pipelineHandler.Transcribe)
		api.POST("/translate", r.pipelineHandler.Translate)

		api.GET("/upload/limits", r.uploadHandler.Limits)
		api.POST("/upload", r.uploadHandler.Upload)

		history := api.Group("/history")
		{
			history.GET("", r.historyHandler.List)
			history.GET("/:id", r.historyHandler.Get)
			history.PATCH("/:id", r.historyHandler.Update)
			history.DELETE("/:id", r.historyHandler.Delete)
		}

		api.POST("/subtitle-video/:id", r.videoHandler.SubtitleVideo)
	}

	return engine
}

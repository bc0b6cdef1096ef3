package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khotba/khotba_server/config"
	"github.com/khotba/khotba_server/internal/api"
	"github.com/khotba/khotba_server/internal/api/handler"
	"github.com/khotba/khotba_server/internal/audio"
	"github.com/khotba/khotba_server/internal/database"
	"github.com/khotba/khotba_server/internal/logging"
	"github.com/khotba/khotba_server/internal/pkg/cron"
	"github.com/khotba/khotba_server/internal/pkg/fileutil"
	"github.com/khotba/khotba_server/internal/pkg/media"
	"github.com/khotba/khotba_server/internal/pkg/oss"
	"github.com/khotba/khotba_server/internal/pkg/pubsub"
	"github.com/khotba/khotba_server/internal/pkg/ws"
	"github.com/khotba/khotba_server/internal/repository"
	"github.com/khotba/khotba_server/internal/service"
	"github.com/khotba/khotba_server/internal/source"
	"github.com/khotba/khotba_server/internal/subtitle"
	"github.com/khotba/khotba_server/internal/transcribe"
	"github.com/khotba/khotba_server/internal/translate"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, logCloser, err := logging.New(logging.Options{Level: cfg.Log.Level, Dir: cfg.Log.Dir})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logCloser.Close()

	// Storage layout; scratch files of a previous run are dropped.
	layout := fileutil.NewLayout(cfg.Storage)
	if err := layout.EnsureDirs(); err != nil {
		logger.Error("failed to create storage dirs", "error", err)
		os.Exit(1)
	}
	if n := layout.ClearTmp(); n > 0 {
		logger.Info("cleared scratch files", "count", n)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	logger.Info("database connected", "driver", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsHub := ws.NewHub(logger)
	deliver := func(msg *pubsub.ProgressMessage) {
		if err := wsHub.SendToRun(msg.RunID, &ws.Message{Type: pubsub.ChannelPipelineProgress, Data: msg}); err != nil {
			logger.Warn("failed to forward progress", "run_id", msg.RunID, "error", err)
		}
	}

	// Progress goes through redis when configured so several instances share it.
	var publisher *pubsub.Publisher
	if cfg.Redis.Enabled() {
		rdb, err := database.NewRedis(&cfg.Redis)
		if err != nil {
			logger.Error("failed to connect redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		logger.Info("redis connected", "host", cfg.Redis.Host)

		publisher = pubsub.NewPublisher(rdb)
		subscriber := pubsub.NewSubscriber(rdb)
		go func() {
			if err := subscriber.Subscribe(ctx, deliver); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("progress subscriber stopped", "error", err)
			}
		}()
	} else {
		publisher = pubsub.NewLocalPublisher(deliver)
	}

	// OSS mirror (optional)
	var mirror service.VideoMirror
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			logger.Warn("failed to init OSS client, videos stay local", "error", err)
		} else {
			mirror = ossClient
			logger.Info("OSS client initialized", "bucket", cfg.OSS.BucketName)
		}
	}

	runner := media.ExecRunner{}
	resolver := source.NewDefaultResolver(cfg.YouTube, runner, logger)
	extractor := audio.NewExtractor(runner, resolver, layout, cfg.Pipeline.MaxSegmentSeconds, logger)
	transcriber := transcribe.NewClient(cfg.Providers.Groq, logger)
	translator := translate.NewClient(cfg.Providers.Gemini, logger)
	renderer := subtitle.NewRenderer(runner, resolver, layout, logger)

	analysisRepo := repository.NewAnalysisRepository(db)

	pipelineService := service.NewPipelineService(resolver, extractor, transcriber, translator,
		analysisRepo, publisher, layout, cfg, logger)
	videoService := service.NewVideoService(analysisRepo, renderer, mirror, layout, logger)
	historyService := service.NewHistoryService(analysisRepo, translator, videoService, layout, logger)
	uploadService := service.NewUploadService(runner, layout, cfg, logger)

	cronService := cron.NewService(analysisRepo, layout, cfg.Cleanup, logger)
	cronService.Start()
	defer cronService.Stop()

	router := api.NewRouter(
		handler.NewPipelineHandler(pipelineService, logger),
		handler.NewUploadHandler(uploadService, cfg, logger),
		handler.NewHistoryHandler(historyService, logger),
		handler.NewVideoHandler(videoService, logger),
		handler.NewWebSocketHandler(wsHub, cfg.CORS.AllowedOrigins, logger),
		cfg,
		logger,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router.Setup(),
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

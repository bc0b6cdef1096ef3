package source

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/khotba/khotba_server/config"
	"github.com/khotba/khotba_server/internal/pkg/media"
)

type VideoInfo struct {
	Title     string `json:"title"`
	Duration  int    `json:"duration"`
	Thumbnail string `json:"thumbnail_url"`
}

type StreamKind int

const (
	StreamAudio StreamKind = iota
	StreamVideo
)

// StreamLocator holds direct media URLs; a video stream may come as separate video and audio.
type StreamLocator struct {
	URLs []string
}

type MetadataProvider interface {
	Name() string
	Info(ctx context.Context, url string) (*VideoInfo, error)
}

type StreamProvider interface {
	Name() string
	Stream(ctx context.Context, url string, kind StreamKind) (*StreamLocator, error)
}

// Resolver tries its providers in order; the first success wins.
type Resolver struct {
	metadata []MetadataProvider
	streams  []StreamProvider
	logger   *slog.Logger
}

func NewResolver(metadata []MetadataProvider, streams []StreamProvider, logger *slog.Logger) *Resolver {
	return &Resolver{metadata: metadata, streams: streams, logger: logger}
}

// NewDefaultResolver wires yt-dlp first and the public oEmbed endpoint as metadata fallback.
func NewDefaultResolver(cfg config.YouTubeConfig, runner media.Runner, logger *slog.Logger) *Resolver {
	cookies := ""
	if cfg.CookiesFile != "" {
		if _, err := os.Stat(cfg.CookiesFile); err == nil {
			cookies = cfg.CookiesFile
		} else {
			logger.Warn("youtube cookies file not found, ignoring", "path", cfg.CookiesFile)
		}
	}

	primary := &YtDlp{Runner: runner, CookiesFile: cookies}
	alternate := &YtDlp{Runner: runner, CookiesFile: cookies, PlayerClient: "android"}
	oembed := &OEmbed{Client: &http.Client{Timeout: media.ResolveTimeout}}

	return NewResolver(
		[]MetadataProvider{primary, oembed},
		[]StreamProvider{primary, alternate},
		logger,
	)
}

func (r *Resolver) Info(ctx context.Context, url string) (*VideoInfo, error) {
	if err := ValidateURL(url); err != nil {
		return nil, err
	}

	resolveErr := &ResolveError{Stage: StageMetadata}
	for _, p := range r.metadata {
		t0 := time.Now()
		info, err := p.Info(ctx, url)
		if err == nil {
			r.logger.Info("video info fetched", "provider", p.Name(), "title", info.Title,
				"duration", info.Duration, "elapsed", time.Since(t0).Round(time.Millisecond))
			return info, nil
		}
		r.logger.Warn("metadata provider failed", "provider", p.Name(), "error", err)
		resolveErr.Attempts = append(resolveErr.Attempts, &attemptError{provider: p.Name(), err: err})
		if errors.Is(err, context.Canceled) {
			break
		}
	}
	return nil, resolveErr
}

func (r *Resolver) Stream(ctx context.Context, url string, kind StreamKind) (*StreamLocator, error) {
	if err := ValidateURL(url); err != nil {
		return nil, err
	}

	resolveErr := &ResolveError{Stage: StageStream}
	for _, p := range r.streams {
		loc, err := p.Stream(ctx, url, kind)
		if err == nil && len(loc.URLs) == 0 {
			err = errEmptyStream
		}
		if err == nil {
			r.logger.Info("stream resolved", "provider", p.Name(), "urls", len(loc.URLs))
			return loc, nil
		}
		r.logger.Warn("stream provider failed", "provider", p.Name(), "error", err)
		resolveErr.Attempts = append(resolveErr.Attempts, &attemptError{provider: p.Name(), err: err})
		if errors.Is(err, context.Canceled) {
			break
		}
	}
	return nil, resolveErr
}

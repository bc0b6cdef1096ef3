package subtitle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khotba/khotba_server/internal/model"
	"github.com/khotba/khotba_server/internal/pkg/fileutil"
	"github.com/khotba/khotba_server/internal/pkg/media"
	"github.com/khotba/khotba_server/internal/source"
)

// Style is the libass force_style: bottom-centre white text, black outline, no box.
const Style = "FontSize=20,Alignment=2,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,BorderStyle=1,Outline=1,Shadow=0"

// PartialSuffix marks in-progress renders inside the videos directory.
const PartialSuffix = ".part" + fileutil.VideoExt

var ErrNoSegments = errors.New("no segments to render")

type StreamResolver interface {
	Stream(ctx context.Context, url string, kind source.StreamKind) (*source.StreamLocator, error)
}

type Request struct {
	AnalysisID string
	Lang       string
	Segments   []model.Segment
	Start      int
	End        int
	URL        string
	LocalPath  string
}

// Renderer burns subtitles into a clip and caches the result per (record, language).
type Renderer struct {
	runner   media.Runner
	resolver StreamResolver
	layout   *fileutil.Layout
	logger   *slog.Logger
}

func NewRenderer(runner media.Runner, resolver StreamResolver, layout *fileutil.Layout, logger *slog.Logger) *Renderer {
	return &Renderer{runner: runner, resolver: resolver, layout: layout, logger: logger}
}

// CachePath is where the rendered video for (id, lang) lives.
func (r *Renderer) CachePath(analysisID, lang string) string {
	return r.layout.VideoPath(analysisID, lang)
}

// Render returns the cached video when present; otherwise renders it.
// The output appears at the cache path only once complete.
func (r *Renderer) Render(ctx context.Context, req Request) (string, bool, error) {
	cachePath := r.CachePath(req.AnalysisID, req.Lang)
	if fileutil.Exists(cachePath) {
		r.logger.Info("subtitle video cache hit", "analysis_id", req.AnalysisID, "lang", req.Lang)
		return cachePath, true, nil
	}
	if len(req.Segments) == 0 {
		return "", false, ErrNoSegments
	}

	r.logger.Info("subtitle video cache miss, rendering",
		"analysis_id", req.AnalysisID, "lang", req.Lang, "segments", len(req.Segments),
		"start", req.Start, "end", req.End)
	t0 := time.Now()

	srtPath := r.layout.TmpPath(".srt")
	defer fileutil.SafeRemove(srtPath)
	if err := os.WriteFile(srtPath, []byte(Generate(req.Segments)), 0644); err != nil {
		return "", false, fmt.Errorf("failed to write subtitles: %w", err)
	}

	rawPath := r.layout.TmpPath(fileutil.VideoExt)
	defer fileutil.SafeRemove(rawPath)
	if err := r.fetchSegment(ctx, req, rawPath); err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(r.layout.VideosDir, 0755); err != nil {
		return "", false, err
	}
	partPath := filepath.Join(r.layout.VideosDir,
		fmt.Sprintf(".%s_%s.%s%s", req.AnalysisID, req.Lang, uuid.NewString()[:8], PartialSuffix))
	defer fileutil.SafeRemove(partPath)

	_, err := r.runner.Run(ctx, media.BurnTimeout, "ffmpeg",
		"-i", rawPath,
		"-vf", fmt.Sprintf("subtitles=%s:force_style='%s'", escapeFilterPath(srtPath), Style),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-y", partPath,
	)
	if err != nil {
		r.logger.Error("subtitle burn failed", "analysis_id", req.AnalysisID, "error", err)
		return "", false, err
	}

	if err := os.Rename(partPath, cachePath); err != nil {
		return "", false, fmt.Errorf("failed to publish rendered video: %w", err)
	}

	r.logger.Info("subtitle video rendered", "analysis_id", req.AnalysisID, "lang", req.Lang,
		"path", cachePath, "elapsed", time.Since(t0).Round(time.Millisecond))
	return cachePath, false, nil
}

// fetchSegment copies [Start, End) of the source into out without re-encoding.
func (r *Renderer) fetchSegment(ctx context.Context, req Request, out string) error {
	start, end := strconv.Itoa(req.Start), strconv.Itoa(req.End)

	var args []string
	if req.LocalPath != "" {
		args = []string{"-ss", start, "-to", end, "-i", req.LocalPath, "-c", "copy"}
	} else {
		loc, err := r.resolver.Stream(ctx, req.URL, source.StreamVideo)
		if err != nil {
			return err
		}
		if len(loc.URLs) >= 2 {
			args = []string{
				"-ss", start, "-to", end, "-i", loc.URLs[0],
				"-ss", start, "-to", end, "-i", loc.URLs[1],
				"-c", "copy",
				"-map", "0:v:0", "-map", "1:a:0",
			}
		} else {
			args = []string{"-ss", start, "-to", end, "-i", loc.URLs[0], "-c", "copy"}
		}
	}
	args = append(args, "-y", out)

	if _, err := r.runner.Run(ctx, media.FetchTimeout, "ffmpeg", args...); err != nil {
		r.logger.Error("video segment fetch failed", "analysis_id", req.AnalysisID, "error", err)
		return err
	}
	return nil
}

// Invalidate drops the cached render of one language.
func (r *Renderer) Invalidate(analysisID, lang string) {
	fileutil.SafeRemove(r.CachePath(analysisID, lang))
}

// InvalidateAll drops every cached render of a record.
func (r *Renderer) InvalidateAll(analysisID string) {
	for _, lang := range model.Languages {
		r.Invalidate(analysisID, lang)
	}
	matches, _ := filepath.Glob(filepath.Join(r.layout.VideosDir, analysisID+"_*"+fileutil.VideoExt))
	for _, m := range matches {
		fileutil.SafeRemove(m)
	}
}

// escapeFilterPath quotes characters the ffmpeg filter parser treats specially.
func escapeFilterPath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, ":", `\:`)
	return strings.ReplaceAll(path, "'", `\'`)
}

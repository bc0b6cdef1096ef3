package audio

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/khotba/khotba_server/internal/pkg/fileutil"
	"github.com/khotba/khotba_server/internal/pkg/media"
	"github.com/khotba/khotba_server/internal/source"
)

const DefaultMaxSegmentSeconds = 30 * 60

// RangeError is a rejected clip range; its message is safe to show to clients.
type RangeError struct {
	Msg string
}

func (e *RangeError) Error() string { return e.Msg }

// ValidateRange checks a [start, end) window in seconds against maxSeconds.
func ValidateRange(start, end, maxSeconds int) error {
	if maxSeconds <= 0 {
		maxSeconds = DefaultMaxSegmentSeconds
	}
	switch {
	case start < 0:
		return &RangeError{Msg: "start_seconds must not be negative"}
	case end <= start:
		return &RangeError{Msg: "end_seconds must be greater than start_seconds"}
	case end-start > maxSeconds:
		return &RangeError{Msg: fmt.Sprintf("Segment cannot exceed %d minutes", maxSeconds/60)}
	}
	return nil
}

// Source is either a remote video URL or a path to a local upload.
type Source struct {
	URL       string
	LocalPath string
}

func (s Source) IsLocal() bool { return s.LocalPath != "" }

// Clip is an extracted audio file in the scratch directory.
type Clip struct {
	Path     string
	Duration float64
}

// Cleanup removes the clip; safe to defer on a nil clip.
func (c *Clip) Cleanup() {
	if c == nil {
		return
	}
	fileutil.SafeRemove(c.Path)
}

type StreamResolver interface {
	Stream(ctx context.Context, url string, kind source.StreamKind) (*source.StreamLocator, error)
}

type Extractor struct {
	runner     media.Runner
	resolver   StreamResolver
	layout     *fileutil.Layout
	maxSeconds int
	logger     *slog.Logger
}

func NewExtractor(runner media.Runner, resolver StreamResolver, layout *fileutil.Layout, maxSeconds int, logger *slog.Logger) *Extractor {
	return &Extractor{
		runner:     runner,
		resolver:   resolver,
		layout:     layout,
		maxSeconds: maxSeconds,
		logger:     logger,
	}
}

// Extract cuts [start, end) out of src into an m4a clip.
func (e *Extractor) Extract(ctx context.Context, src Source, start, end int) (*Clip, error) {
	if err := ValidateRange(start, end, e.maxSeconds); err != nil {
		return nil, err
	}
	input, err := e.Resolve(ctx, src)
	if err != nil {
		return nil, err
	}
	return e.ExtractInput(ctx, input, start, end)
}

// Resolve turns src into something ffmpeg can read: the local path as is,
// or the direct audio stream URL of a remote video.
func (e *Extractor) Resolve(ctx context.Context, src Source) (string, error) {
	if src.IsLocal() {
		return src.LocalPath, nil
	}
	loc, err := e.resolver.Stream(ctx, src.URL, source.StreamAudio)
	if err != nil {
		return "", err
	}
	return loc.URLs[0], nil
}

// ExtractInput cuts [start, end) out of an ffmpeg input. The stream is copied;
// when that fails ffmpeg runs once more re-encoding to aac.
func (e *Extractor) ExtractInput(ctx context.Context, input string, start, end int) (*Clip, error) {
	if err := ValidateRange(start, end, e.maxSeconds); err != nil {
		return nil, err
	}

	t0 := time.Now()
	out := e.layout.TmpPath(".m4a")
	_, err := e.runner.Run(ctx, media.ExtractTimeout, "ffmpeg", extractArgs(input, start, end, out, false)...)
	if err != nil {
		e.logger.Warn("audio stream copy failed, re-encoding", "error", err)
		fileutil.SafeRemove(out)
		_, err = e.runner.Run(ctx, media.ExtractTimeout, "ffmpeg", extractArgs(input, start, end, out, true)...)
	}
	if err != nil {
		fileutil.SafeRemove(out)
		e.logger.Error("audio extraction failed", "error", err)
		return nil, err
	}

	e.logger.Info("audio extracted", "start", start, "end", end,
		"elapsed", time.Since(t0).Round(time.Millisecond))
	return &Clip{Path: out, Duration: float64(end - start)}, nil
}

func extractArgs(input string, start, end int, out string, reencode bool) []string {
	// -ss before -i seeks with a range request instead of reading from the beginning
	args := []string{
		"-ss", strconv.Itoa(start),
		"-to", strconv.Itoa(end),
		"-i", input,
		"-vn",
	}
	if reencode {
		args = append(args, "-c:a", "aac", "-b:a", "128k")
	} else {
		args = append(args, "-c:a", "copy")
	}
	return append(args, "-y", out)
}

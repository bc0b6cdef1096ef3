package service

import (
	"errors"
	"fmt"

	"github.com/khotba/khotba_server/internal/pkg/media"
	"github.com/khotba/khotba_server/internal/source"
	"github.com/khotba/khotba_server/internal/transcribe"
	"github.com/khotba/khotba_server/internal/translate"
)

var (
	ErrAnalysisNotFound   = errors.New("Analysis not found")
	ErrInvalidSource      = errors.New("source_type must be 'youtube' or 'upload'")
	ErrEmptyTranscript    = errors.New("arabic_text or segments are required")
	ErrRetranslation      = errors.New("Retranslation failed")
	ErrInvalidLanguage    = errors.New("lang must be 'arabic' or 'french'")
	ErrNoTimestamps       = errors.New("No segments available. Re-run the analysis with timestamps enabled.")
	ErrNoLanguageSegments = errors.New("no segments for language")
	ErrInvalidSegments    = errors.New("invalid segments")
	ErrSourceUnavailable  = errors.New("The source video of this analysis is no longer available")
)

// Pipeline stages as reported in failures.
const (
	StageVideoInfo  = "video info"
	StageTranscribe = "transcription"
	StageTranslate  = "translation"
	StageRender     = "video generation"
)

// StageError is a provider failure tied to the stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Message is the client-facing description. Raw provider output is only
// surfaced for resolution and render failures, where it is the useful part.
func (e *StageError) Message() string {
	var resolveErr *source.ResolveError
	switch {
	case errors.Is(e.Err, transcribe.ErrMissingAPIKey), errors.Is(e.Err, translate.ErrMissingAPIKey):
		return e.Err.Error()
	case media.IsNotInstalled(e.Err):
		return "yt-dlp or FFmpeg is not installed. Please install both."
	case errors.As(e.Err, &resolveErr):
		return resolveErr.Reason()
	}

	switch e.Stage {
	case StageVideoInfo:
		return "Failed to fetch video information"
	case StageTranscribe:
		return "Audio extraction or transcription failed"
	case StageTranslate:
		return "Translation or article generation failed"
	case StageRender:
		return fmt.Sprintf("Video generation failed: %v", e.Err)
	}
	return e.Error()
}

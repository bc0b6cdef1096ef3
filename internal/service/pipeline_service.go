package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khotba/khotba_server/config"
	"github.com/khotba/khotba_server/internal/audio"
	"github.com/khotba/khotba_server/internal/model"
	"github.com/khotba/khotba_server/internal/model/dto"
	"github.com/khotba/khotba_server/internal/pkg/fileutil"
	"github.com/khotba/khotba_server/internal/pkg/pubsub"
	"github.com/khotba/khotba_server/internal/repository"
	"github.com/khotba/khotba_server/internal/source"
	"github.com/khotba/khotba_server/internal/transcribe"
	"github.com/khotba/khotba_server/internal/translate"
)

type InfoResolver interface {
	Info(ctx context.Context, url string) (*source.VideoInfo, error)
}

type ClipExtractor interface {
	Resolve(ctx context.Context, src audio.Source) (string, error)
	ExtractInput(ctx context.Context, input string, start, end int) (*audio.Clip, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, duration float64, withTimestamps bool) (*transcribe.Result, error)
}

type Translator interface {
	Translate(ctx context.Context, segments []model.Segment, text string, withTimestamps bool) (*translate.Translation, error)
	TranslateWithArticle(ctx context.Context, segments []model.Segment, text string, withTimestamps bool) (*translate.Translation, *translate.Article, error)
}

// PipelineService runs the transcription and translation phases of an analysis.
// Each phase is one synchronous request; progress is published per run id.
type PipelineService struct {
	resolver     InfoResolver
	extractor    ClipExtractor
	transcriber  Transcriber
	translator   Translator
	analysisRepo *repository.AnalysisRepository
	publisher    *pubsub.Publisher
	layout       *fileutil.Layout
	cfg          *config.Config
	logger       *slog.Logger
}

func NewPipelineService(
	resolver InfoResolver,
	extractor ClipExtractor,
	transcriber Transcriber,
	translator Translator,
	analysisRepo *repository.AnalysisRepository,
	publisher *pubsub.Publisher,
	layout *fileutil.Layout,
	cfg *config.Config,
	logger *slog.Logger,
) *PipelineService {
	return &PipelineService{
		resolver:     resolver,
		extractor:    extractor,
		transcriber:  transcriber,
		translator:   translator,
		analysisRepo: analysisRepo,
		publisher:    publisher,
		layout:       layout,
		cfg:          cfg,
		logger:       logger,
	}
}

// VideoInfo looks up title, duration and thumbnail of a remote video.
func (s *PipelineService) VideoInfo(ctx context.Context, url string) (*dto.VideoInfoResponse, error) {
	url = strings.TrimSpace(url)
	if err := source.ValidateURL(url); err != nil {
		return nil, err
	}

	info, err := s.resolver.Info(ctx, url)
	if err != nil {
		s.logger.Error("video info failed", "url", url, "error", err)
		return nil, &StageError{Stage: StageVideoInfo, Err: err}
	}

	return &dto.VideoInfoResponse{
		Title:     info.Title,
		Duration:  info.Duration,
		Thumbnail: info.Thumbnail,
	}, nil
}

// Transcribe extracts the requested window from a remote video or an upload
// and transcribes it.
func (s *PipelineService) Transcribe(ctx context.Context, req *dto.TranscribeRequest) (*dto.TranscribeResponse, error) {
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	src, err := s.transcribeSource(req)
	if err != nil {
		return nil, err
	}
	if err := audio.ValidateRange(req.StartSeconds, req.EndSeconds, s.cfg.Pipeline.MaxSegmentSeconds); err != nil {
		return nil, err
	}

	s.logger.Info("starting transcription", "run_id", runID, "source", req.SourceType,
		"url", src.URL, "upload_id", req.UploadID, "start", req.StartSeconds, "end", req.EndSeconds)
	t0 := time.Now()

	publishProgress := func(stage string) {
		_ = s.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			RunID:  runID,
			Stage:  stage,
			Status: pubsub.StatusRunning,
		})
	}

	handleError := func(stage string, err error) error {
		s.logger.Error("transcription failed", "run_id", runID, "stage", stage, "error", err)
		stageErr := &StageError{Stage: StageTranscribe, Err: err}
		// the request context may already be cancelled
		_ = s.publisher.PublishProgress(context.Background(), &pubsub.ProgressMessage{
			RunID:  runID,
			Stage:  pubsub.StageFailed,
			Status: pubsub.StatusFailed,
			Error:  stageErr.Message(),
		})
		return stageErr
	}

	publishProgress(pubsub.StageResolving)
	input, err := s.extractor.Resolve(ctx, src)
	if err != nil {
		return nil, handleError(pubsub.StageResolving, err)
	}

	publishProgress(pubsub.StageExtracting)
	clip, err := s.extractor.ExtractInput(ctx, input, req.StartSeconds, req.EndSeconds)
	if err != nil {
		return nil, handleError(pubsub.StageExtracting, err)
	}
	defer clip.Cleanup()

	publishProgress(pubsub.StageTranscribing)
	result, err := s.transcriber.Transcribe(ctx, clip.Path, clip.Duration, req.WithTimestamps())
	if err != nil {
		return nil, handleError(pubsub.StageTranscribing, err)
	}

	s.logger.Info("transcription completed", "run_id", runID,
		"segments", len(result.Segments), "audio_seconds", result.AudioSeconds,
		"cost_usd", result.CostUSD, "elapsed", time.Since(t0).Round(time.Millisecond))

	return &dto.TranscribeResponse{
		ArabicText:          result.Text,
		Segments:            result.Segments,
		WhisperAudioSeconds: result.AudioSeconds,
		WhisperCostUSD:      result.CostUSD,
		RunID:               runID,
	}, nil
}

func (s *PipelineService) transcribeSource(req *dto.TranscribeRequest) (audio.Source, error) {
	switch req.SourceType {
	case model.SourceUpload:
		path, err := source.ValidateUpload(s.layout, req.UploadID, req.Ext)
		if err != nil {
			return audio.Source{}, err
		}
		return audio.Source{LocalPath: path}, nil
	case "", model.SourceYouTube:
		url := strings.TrimSpace(req.URL)
		if err := source.ValidateURL(url); err != nil {
			return audio.Source{}, err
		}
		return audio.Source{URL: url}, nil
	default:
		return audio.Source{}, ErrInvalidSource
	}
}

// Translate produces the French translation and the article, then stores the
// analysis. Storing is best-effort: a failed write leaves AnalysisID nil.
func (s *PipelineService) Translate(ctx context.Context, req *dto.TranslateRequest) (*dto.TranslateResponse, error) {
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = model.SourceYouTube
	}
	if sourceType != model.SourceYouTube && sourceType != model.SourceUpload {
		return nil, ErrInvalidSource
	}
	if strings.TrimSpace(req.ArabicText) == "" && len(req.Segments) == 0 {
		return nil, ErrEmptyTranscript
	}
	if err := validateSegments(req.Segments); err != nil {
		return nil, err
	}
	if err := audio.ValidateRange(req.StartSeconds, req.EndSeconds, 0); err != nil {
		return nil, err
	}

	withTimestamps := req.WithTimestamps()
	arabicText := req.ArabicText
	if strings.TrimSpace(arabicText) == "" {
		arabicText = model.JoinText(req.Segments)
	}

	t0 := time.Now()
	s.logger.Info("starting translation", "run_id", runID, "segments", len(req.Segments),
		"chars", len(arabicText), "timestamps", withTimestamps)

	_ = s.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
		RunID:  runID,
		Stage:  pubsub.StageTranslating,
		Status: pubsub.StatusRunning,
	})

	translation, article, err := s.translator.TranslateWithArticle(ctx, req.Segments, arabicText, withTimestamps)
	if err != nil {
		s.logger.Error("translation failed", "run_id", runID, "error", err)
		stageErr := &StageError{Stage: StageTranslate, Err: err}
		_ = s.publisher.PublishProgress(context.Background(), &pubsub.ProgressMessage{
			RunID:  runID,
			Stage:  pubsub.StageFailed,
			Status: pubsub.StatusFailed,
			Error:  stageErr.Message(),
		})
		return nil, stageErr
	}

	costs := model.Costs{
		WhisperAudioSeconds:     req.WhisperAudioSeconds,
		WhisperCostUSD:          req.WhisperCostUSD,
		TranslationInputTokens:  translation.Usage.InputTokens,
		TranslationOutputTokens: translation.Usage.OutputTokens,
		TranslationCostUSD:      translation.CostUSD,
		ArticleInputTokens:      article.Usage.InputTokens,
		ArticleOutputTokens:     article.Usage.OutputTokens,
		ArticleCostUSD:          article.CostUSD,
	}
	costs.TotalCostUSD = round6(costs.WhisperCostUSD + costs.TranslationCostUSD + costs.ArticleCostUSD)

	segments := model.SegmentTimeline{}
	if withTimestamps && len(req.Segments) > 0 {
		segments.Set(model.LangArabic, req.Segments)
		segments.Set(model.LangFrench, translation.Segments)
	}

	analysis := &model.Analysis{
		SourceType:            sourceType,
		YouTubeURL:            req.YouTubeURL,
		UploadID:              req.UploadID,
		UploadFilename:        req.UploadFilename,
		VideoTitle:            req.VideoTitle,
		ThumbnailURL:          req.ThumbnailURL,
		StartSeconds:          req.StartSeconds,
		EndSeconds:            req.EndSeconds,
		ArabicText:            arabicText,
		FrenchText:            translation.Text,
		ArticleMarkdown:       article.Markdown,
		Segments:              segments,
		Costs:                 &costs,
		Status:                model.StatusCompleted,
		ProcessingTimeSeconds: round2(time.Since(t0).Seconds()),
	}

	resp := &dto.TranslateResponse{
		FrenchText:         translation.Text,
		ArticleMarkdown:    article.Markdown,
		TranslatedSegments: translation.Segments,
		Costs:              costs,
		RunID:              runID,
	}
	if resp.TranslatedSegments == nil {
		resp.TranslatedSegments = []model.Segment{}
	}

	done := &pubsub.ProgressMessage{
		RunID:  runID,
		Stage:  pubsub.StagePersisted,
		Status: pubsub.StatusDone,
	}
	if err := s.analysisRepo.Create(analysis); err != nil {
		s.logger.Error("failed to save analysis", "run_id", runID, "error", err)
		done.Message = "Translation done, history not saved"
	} else {
		resp.AnalysisID = &analysis.ID
		done.AnalysisID = analysis.ID
		s.logger.Info("analysis saved", "run_id", runID, "analysis_id", analysis.ID,
			"total_cost_usd", costs.TotalCostUSD)
	}
	_ = s.publisher.PublishProgress(context.Background(), done)

	s.logger.Info("translation completed", "run_id", runID,
		"elapsed", time.Since(t0).Round(time.Millisecond))
	return resp, nil
}

// IsClientError reports whether err came from request validation.
func IsClientError(err error) bool {
	var rangeErr *audio.RangeError
	return errors.As(err, &rangeErr) ||
		errors.Is(err, source.ErrInvalidURL) ||
		errors.Is(err, source.ErrInvalidUpload) ||
		errors.Is(err, ErrInvalidSource) ||
		errors.Is(err, ErrEmptyTranscript) ||
		errors.Is(err, ErrInvalidLanguage) ||
		errors.Is(err, ErrNoTimestamps) ||
		errors.Is(err, ErrNoLanguageSegments) ||
		errors.Is(err, ErrInvalidSegments)
}

// validateSegments wraps a malformed timeline as a client error.
func validateSegments(segments []model.Segment) error {
	if err := model.ValidateSegments(segments); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSegments, err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

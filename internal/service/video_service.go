package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/khotba/khotba_server/internal/model"
	"github.com/khotba/khotba_server/internal/pkg/fileutil"
	"github.com/khotba/khotba_server/internal/repository"
	"github.com/khotba/khotba_server/internal/source"
	"github.com/khotba/khotba_server/internal/subtitle"
)

type VideoRenderer interface {
	Render(ctx context.Context, req subtitle.Request) (string, bool, error)
	Invalidate(analysisID, lang string)
	InvalidateAll(analysisID string)
}

// VideoMirror keeps a remote copy of rendered videos.
type VideoMirror interface {
	UploadVideo(localPath, analysisID, lang string) (string, error)
	DeleteVideo(analysisID, lang string) error
}

// VideoFile is a rendered video ready to be served.
type VideoFile struct {
	Path     string
	Filename string
}

// VideoService renders subtitle videos and owns their cache lifecycle.
type VideoService struct {
	analysisRepo *repository.AnalysisRepository
	renderer     VideoRenderer
	mirror       VideoMirror
	layout       *fileutil.Layout
	logger       *slog.Logger
}

// NewVideoService builds the service; mirror may be nil.
func NewVideoService(
	analysisRepo *repository.AnalysisRepository,
	renderer VideoRenderer,
	mirror VideoMirror,
	layout *fileutil.Layout,
	logger *slog.Logger,
) *VideoService {
	return &VideoService{
		analysisRepo: analysisRepo,
		renderer:     renderer,
		mirror:       mirror,
		layout:       layout,
		logger:       logger,
	}
}

// Render returns the subtitled video of one language, rendering it on a cache miss.
func (s *VideoService) Render(ctx context.Context, analysisID, lang string) (*VideoFile, error) {
	if lang != model.LangArabic && lang != model.LangFrench {
		return nil, ErrInvalidLanguage
	}

	analysis, err := s.analysisRepo.GetByID(analysisID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}

	if !analysis.Segments.HasSegments() {
		return nil, ErrNoTimestamps
	}
	segments := analysis.Segments[lang]
	if len(segments) == 0 {
		return nil, ErrNoLanguageSegments
	}

	req := subtitle.Request{
		AnalysisID: analysis.ID,
		Lang:       lang,
		Segments:   segments,
		Start:      analysis.StartSeconds,
		End:        analysis.EndSeconds,
		URL:        analysis.YouTubeURL,
	}
	if analysis.SourceType == model.SourceUpload {
		path, err := source.ValidateUpload(s.layout, analysis.UploadID, analysis.UploadExt())
		if err != nil {
			s.logger.Warn("upload of analysis is gone", "analysis_id", analysis.ID, "upload_id", analysis.UploadID)
			return nil, ErrSourceUnavailable
		}
		req.LocalPath = path
	}

	path, cached, err := s.renderer.Render(ctx, req)
	if err != nil {
		return nil, &StageError{Stage: StageRender, Err: err}
	}

	if !cached && s.mirror != nil {
		if url, err := s.mirror.UploadVideo(path, analysis.ID, lang); err != nil {
			s.logger.Warn("failed to mirror video", "analysis_id", analysis.ID, "lang", lang, "error", err)
		} else {
			s.logger.Info("video mirrored", "analysis_id", analysis.ID, "lang", lang, "url", url)
		}
	}

	return &VideoFile{Path: path, Filename: DownloadFilename(analysis.ID, lang)}, nil
}

// Invalidate drops the rendered video of one language, locally and on the mirror.
func (s *VideoService) Invalidate(analysisID, lang string) {
	s.renderer.Invalidate(analysisID, lang)
	s.deleteMirrored(analysisID, lang)
}

// InvalidateAll drops every rendered video of a record.
func (s *VideoService) InvalidateAll(analysisID string) {
	s.renderer.InvalidateAll(analysisID)
	for _, lang := range model.Languages {
		s.deleteMirrored(analysisID, lang)
	}
}

func (s *VideoService) deleteMirrored(analysisID, lang string) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.DeleteVideo(analysisID, lang); err != nil {
		s.logger.Warn("failed to delete mirrored video", "analysis_id", analysisID, "lang", lang, "error", err)
	}
}

// DownloadFilename is the attachment name offered to clients.
func DownloadFilename(analysisID, lang string) string {
	label := "arabe"
	if lang == model.LangFrench {
		label = "francais"
	}
	short := analysisID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("khotba-%s-%s.mp4", label, short)
}

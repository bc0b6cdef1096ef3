package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/khotba/khotba_server/internal/model"
	"github.com/khotba/khotba_server/internal/model/dto"
	"github.com/khotba/khotba_server/internal/pkg/fileutil"
	"github.com/khotba/khotba_server/internal/repository"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// VideoInvalidator drops rendered videos once their content is stale.
type VideoInvalidator interface {
	Invalidate(analysisID, lang string)
	InvalidateAll(analysisID string)
}

type HistoryService struct {
	analysisRepo *repository.AnalysisRepository
	translator   Translator
	videos       VideoInvalidator
	layout       *fileutil.Layout
	logger       *slog.Logger
}

func NewHistoryService(
	analysisRepo *repository.AnalysisRepository,
	translator Translator,
	videos VideoInvalidator,
	layout *fileutil.Layout,
	logger *slog.Logger,
) *HistoryService {
	return &HistoryService{
		analysisRepo: analysisRepo,
		translator:   translator,
		videos:       videos,
		layout:       layout,
		logger:       logger,
	}
}

// List returns one page of analyses, newest first.
func (s *HistoryService) List(page, limit int) (*dto.HistoryListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	analyses, total, err := s.analysisRepo.List(page, limit)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.HistoryListItem, 0, len(analyses))
	for _, a := range analyses {
		item := &dto.HistoryListItem{
			ID:            a.ID,
			VideoTitle:    a.VideoTitle,
			ThumbnailURL:  a.ThumbnailURL,
			YouTubeURL:    a.YouTubeURL,
			SourceType:    a.SourceType,
			StartSeconds:  a.StartSeconds,
			EndSeconds:    a.EndSeconds,
			TimeRange:     FormatTimeRange(a.StartSeconds, a.EndSeconds),
			CreatedAt:     a.CreatedAt.Format(time.RFC3339),
			Status:        a.Status,
			HasTimestamps: a.Segments.HasSegments(),
		}
		if a.Costs != nil {
			total := a.Costs.TotalCostUSD
			item.TotalCostUSD = &total
		}
		items = append(items, item)
	}

	return &dto.HistoryListResponse{
		Total: total,
		Page:  page,
		Limit: limit,
		Items: items,
	}, nil
}

// Get returns the full record.
func (s *HistoryService) Get(id string) (*dto.HistoryDetail, error) {
	a, err := s.getAnalysis(id)
	if err != nil {
		return nil, err
	}

	detail := &dto.HistoryDetail{
		ID:                    a.ID,
		CreatedAt:             a.CreatedAt.Format(time.RFC3339),
		SourceType:            a.SourceType,
		YouTubeURL:            a.YouTubeURL,
		UploadID:              a.UploadID,
		UploadFilename:        a.UploadFilename,
		VideoTitle:            a.VideoTitle,
		ThumbnailURL:          a.ThumbnailURL,
		StartSeconds:          a.StartSeconds,
		EndSeconds:            a.EndSeconds,
		TimeRange:             FormatTimeRange(a.StartSeconds, a.EndSeconds),
		ArabicText:            a.ArabicText,
		FrenchText:            a.FrenchText,
		ArticleMarkdown:       a.ArticleMarkdown,
		ArabicSegments:        a.Segments[model.LangArabic],
		FrenchSegments:        a.Segments[model.LangFrench],
		Status:                a.Status,
		ProcessingTimeSeconds: a.ProcessingTimeSeconds,
		Costs:                 a.Costs,
	}
	if detail.ArabicSegments == nil {
		detail.ArabicSegments = []model.Segment{}
	}
	if detail.FrenchSegments == nil {
		detail.FrenchSegments = []model.Segment{}
	}
	return detail, nil
}

// Update applies a partial edit. Arabic edits are re-translated before anything
// is written, so a failed re-translation leaves the record as it was.
func (s *HistoryService) Update(ctx context.Context, id string, req *dto.UpdateHistoryRequest) (*dto.UpdateHistoryResponse, error) {
	if err := validateSegments(req.ArabicSegments); err != nil {
		return nil, err
	}
	if err := validateSegments(req.FrenchSegments); err != nil {
		return nil, err
	}

	a, err := s.getAnalysis(id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	resp := &dto.UpdateHistoryResponse{Success: true}
	timeline := model.SegmentTimeline{}
	for lang, segs := range a.Segments {
		timeline[lang] = segs
	}
	var invalidate []string

	switch {
	case req.ArabicSegments != nil:
		timeline.Set(model.LangArabic, req.ArabicSegments)
		arabic := timeline[model.LangArabic]
		arabicText := model.JoinText(arabic)
		if req.ArabicText != nil {
			arabicText = *req.ArabicText
		}
		translation, err := s.translator.Translate(ctx, arabic, arabicText, true)
		if err != nil {
			s.logger.Error("retranslation failed", "analysis_id", id, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrRetranslation, err)
		}
		timeline.Set(model.LangFrench, translation.Segments)
		fields["segments_json"] = timeline
		fields["arabic_text"] = arabicText
		fields["french_text"] = translation.Text

		resp.FrenchText = &translation.Text
		resp.FrenchSegments = timeline[model.LangFrench]
		invalidate = model.Languages

	case req.ArabicText != nil:
		translation, err := s.translator.Translate(ctx, nil, *req.ArabicText, false)
		if err != nil {
			s.logger.Error("retranslation failed", "analysis_id", id, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrRetranslation, err)
		}
		fields["arabic_text"] = *req.ArabicText
		fields["french_text"] = translation.Text
		resp.FrenchText = &translation.Text
	}

	// French edits apply only when no re-translation produced a newer French side.
	if req.ArabicSegments == nil {
		if req.FrenchSegments != nil {
			timeline.Set(model.LangFrench, req.FrenchSegments)
			fields["segments_json"] = timeline
			if _, ok := fields["french_text"]; !ok && req.FrenchText == nil {
				fields["french_text"] = model.JoinText(req.FrenchSegments)
			}
			invalidate = append(invalidate, model.LangFrench)
		}
		if req.FrenchText != nil {
			if _, ok := fields["french_text"]; !ok {
				fields["french_text"] = *req.FrenchText
				if req.FrenchSegments == nil {
					invalidate = append(invalidate, model.LangFrench)
				}
			}
		}
	}

	if len(fields) == 0 {
		return resp, nil
	}

	if err := s.analysisRepo.UpdateFields(id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}

	for _, lang := range invalidate {
		s.videos.Invalidate(id, lang)
	}

	s.logger.Info("analysis updated", "analysis_id", id, "invalidated", invalidate)
	return resp, nil
}

// Delete removes the record, then its rendered videos and its upload when no
// other record still uses it. Cleanup failures never fail the deletion.
func (s *HistoryService) Delete(id string) error {
	a, err := s.getAnalysis(id)
	if err != nil {
		return err
	}

	if err := s.analysisRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAnalysisNotFound
		}
		return err
	}

	s.videos.InvalidateAll(id)

	if a.UploadID != "" {
		count, err := s.analysisRepo.CountByUploadID(a.UploadID)
		switch {
		case err != nil:
			s.logger.Warn("failed to count upload references", "upload_id", a.UploadID, "error", err)
		case count == 0:
			fileutil.SafeRemove(s.layout.UploadPath(a.UploadID, a.UploadExt()))
		}
	}

	s.logger.Info("analysis deleted", "analysis_id", id)
	return nil
}

func (s *HistoryService) getAnalysis(id string) (*model.Analysis, error) {
	a, err := s.analysisRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}
	return a, nil
}

// FormatTimeRange renders "MM:SS – MM:SS", switching to HH:MM:SS past an hour.
func FormatTimeRange(start, end int) string {
	return formatClock(start) + " – " + formatClock(end)
}

func formatClock(seconds int) string {
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

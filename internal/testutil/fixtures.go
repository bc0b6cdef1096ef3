package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/khotba/khotba_server/internal/model"
)

// TestAnalysis creates a persisted record with both timelines filled.
func TestAnalysis(t *testing.T, db *gorm.DB, opts ...func(*model.Analysis)) *model.Analysis {
	t.Helper()

	analysis := &model.Analysis{
		SourceType:   model.SourceYouTube,
		YouTubeURL:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		VideoTitle:   fmt.Sprintf("Khotba %d", time.Now().UnixNano()%10000),
		StartSeconds: 0,
		EndSeconds:   60,
		ArabicText:   "بسم الله الرحمن الرحيم الحمد لله",
		FrenchText:   "Au nom d'Allah le Tout Miséricordieux Louange à Allah",
		Segments: model.SegmentTimeline{
			model.LangArabic: {
				{Start: 0, End: 2.5, Text: "بسم الله الرحمن الرحيم"},
				{Start: 2.5, End: 4, Text: "الحمد لله"},
			},
			model.LangFrench: {
				{Start: 0, End: 2.5, Text: "Au nom d'Allah le Tout Miséricordieux"},
				{Start: 2.5, End: 4, Text: "Louange à Allah"},
			},
		},
		Costs:  &model.Costs{WhisperAudioSeconds: 60, TotalCostUSD: 0.0042},
		Status: model.StatusCompleted,
	}

	for _, opt := range opts {
		opt(analysis)
	}

	if err := db.Create(analysis).Error; err != nil {
		t.Fatalf("Failed to create test analysis: %v", err)
	}

	return analysis
}

func WithTitle(title string) func(*model.Analysis) {
	return func(a *model.Analysis) {
		a.VideoTitle = title
	}
}

func WithCreatedAt(at time.Time) func(*model.Analysis) {
	return func(a *model.Analysis) {
		a.CreatedAt = at
	}
}

// WithUpload turns the record into a local-upload source.
func WithUpload(uploadID, filename string) func(*model.Analysis) {
	return func(a *model.Analysis) {
		a.SourceType = model.SourceUpload
		a.YouTubeURL = ""
		a.UploadID = uploadID
		a.UploadFilename = filename
	}
}

// WithoutSegments models a run made without timestamps.
func WithoutSegments() func(*model.Analysis) {
	return func(a *model.Analysis) {
		a.Segments = model.SegmentTimeline{}
	}
}

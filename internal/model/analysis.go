package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Languages of a segment timeline.
const (
	LangArabic = "arabic"
	LangFrench = "french"
)

// Languages lists every language that can own a timeline or a rendered video.
var Languages = []string{LangArabic, LangFrench}

// Source types.
const (
	SourceYouTube = "youtube"
	SourceUpload  = "upload"
)

const StatusCompleted = "completed"

// Segment is one timed unit of speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// JoinText derives a full text from segments.
func JoinText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

// ValidateSegments checks that every segment has non-negative timestamps with
// start <= end.
func ValidateSegments(segments []Segment) error {
	for i, s := range segments {
		if s.Start < 0 || s.End < 0 {
			return fmt.Errorf("segment %d has a negative timestamp", i)
		}
		if s.Start > s.End {
			return fmt.Errorf("segment %d starts after it ends (%.2f > %.2f)", i, s.Start, s.End)
		}
	}
	return nil
}

// SegmentTimeline maps a language onto its ordered segments. Stored as JSON text.
type SegmentTimeline map[string][]Segment

// Set replaces a language's segments, keeping them ordered by start.
func (t SegmentTimeline) Set(lang string, segments []Segment) {
	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	t[lang] = sorted
}

// HasSegments reports whether any language carries at least one segment.
func (t SegmentTimeline) HasSegments() bool {
	for _, segs := range t {
		if len(segs) > 0 {
			return true
		}
	}
	return false
}

func (t SegmentTimeline) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "", nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (t *SegmentTimeline) Scan(value interface{}) error {
	*t = SegmentTimeline{}
	data, err := scanBytes(value)
	if err != nil || len(data) == 0 {
		return err
	}
	return json.Unmarshal(data, t)
}

// Costs is the usage/cost breakdown of one pipeline run. Stored as JSON text.
type Costs struct {
	WhisperAudioSeconds     float64 `json:"whisper_audio_seconds"`
	WhisperCostUSD          float64 `json:"whisper_cost_usd"`
	TranslationInputTokens  int     `json:"translation_input_tokens"`
	TranslationOutputTokens int     `json:"translation_output_tokens"`
	TranslationCostUSD      float64 `json:"translation_cost_usd"`
	ArticleInputTokens      int     `json:"article_input_tokens"`
	ArticleOutputTokens     int     `json:"article_output_tokens"`
	ArticleCostUSD          float64 `json:"article_cost_usd"`
	TotalCostUSD            float64 `json:"total_cost_usd"`
}

func (c *Costs) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (c *Costs) Scan(value interface{}) error {
	data, err := scanBytes(value)
	if err != nil || len(data) == 0 {
		return err
	}
	return json.Unmarshal(data, c)
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported json column type")
	}
}

// Analysis is one completed pipeline run.
type Analysis struct {
	ID                    string          `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt             time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	SourceType            string          `gorm:"size:20;default:youtube" json:"source_type"`
	YouTubeURL            string          `gorm:"column:youtube_url;size:500" json:"youtube_url"`
	UploadID              string          `gorm:"size:36;index" json:"upload_id,omitempty"`
	UploadFilename        string          `gorm:"size:255" json:"upload_filename,omitempty"`
	VideoTitle            string          `gorm:"size:500;not null" json:"video_title"`
	ThumbnailURL          string          `gorm:"size:1000" json:"thumbnail_url,omitempty"`
	StartSeconds          int             `gorm:"not null" json:"start_seconds"`
	EndSeconds            int             `gorm:"not null" json:"end_seconds"`
	ArabicText            string          `gorm:"type:text" json:"arabic_text"`
	FrenchText            string          `gorm:"type:text" json:"french_text"`
	ArticleMarkdown       string          `gorm:"type:text" json:"article_markdown,omitempty"`
	Segments              SegmentTimeline `gorm:"column:segments_json;type:text" json:"segments"`
	Costs                 *Costs          `gorm:"column:cost_json;type:text" json:"costs,omitempty"`
	Status                string          `gorm:"size:20;default:completed" json:"status"`
	ProcessingTimeSeconds float64         `json:"processing_time_seconds"`
}

func (Analysis) TableName() string {
	return "analyses"
}

func (a *Analysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Segments == nil {
		a.Segments = SegmentTimeline{}
	}
	return nil
}

// UploadExt returns the extension of the referenced upload, or "" for remote sources.
func (a *Analysis) UploadExt() string {
	if a.UploadID == "" || a.UploadFilename == "" {
		return ""
	}
	idx := strings.LastIndex(a.UploadFilename, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(a.UploadFilename[idx:])
}

package dto

import "github.com/khotba/khotba_server/internal/model"

// HistoryListItem GET /api/history
type HistoryListItem struct {
	ID            string   `json:"id"`
	VideoTitle    string   `json:"video_title"`
	ThumbnailURL  string   `json:"thumbnail_url"`
	YouTubeURL    string   `json:"youtube_url"`
	SourceType    string   `json:"source_type"`
	StartSeconds  int      `json:"start_seconds"`
	EndSeconds    int      `json:"end_seconds"`
	TimeRange     string   `json:"time_range"`
	CreatedAt     string   `json:"created_at"`
	Status        string   `json:"status"`
	HasTimestamps bool     `json:"has_timestamps"`
	TotalCostUSD  *float64 `json:"total_cost_usd"`
}

type HistoryListResponse struct {
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
	Items []*HistoryListItem `json:"items"`
}

// HistoryDetail GET /api/history/:id
type HistoryDetail struct {
	ID                    string          `json:"id"`
	CreatedAt             string          `json:"created_at"`
	SourceType            string          `json:"source_type"`
	YouTubeURL            string          `json:"youtube_url"`
	UploadID              string          `json:"upload_id,omitempty"`
	UploadFilename        string          `json:"upload_filename,omitempty"`
	VideoTitle            string          `json:"video_title"`
	ThumbnailURL          string          `json:"thumbnail_url"`
	StartSeconds          int             `json:"start_seconds"`
	EndSeconds            int             `json:"end_seconds"`
	TimeRange             string          `json:"time_range"`
	ArabicText            string          `json:"arabic_text"`
	FrenchText            string          `json:"french_text"`
	ArticleMarkdown       string          `json:"article_markdown"`
	ArabicSegments        []model.Segment `json:"arabic_segments"`
	FrenchSegments        []model.Segment `json:"french_segments"`
	Status                string          `json:"status"`
	ProcessingTimeSeconds float64         `json:"processing_time_seconds"`
	Costs                 *model.Costs    `json:"costs"`
}

// UpdateHistoryRequest PATCH /api/history/:id
type UpdateHistoryRequest struct {
	ArabicSegments []model.Segment `json:"arabic_segments"`
	FrenchSegments []model.Segment `json:"french_segments"`
	ArabicText     *string         `json:"arabic_text"`
	FrenchText     *string         `json:"french_text"`
}

type UpdateHistoryResponse struct {
	Success        bool            `json:"success"`
	FrenchText     *string         `json:"french_text,omitempty"`
	FrenchSegments []model.Segment `json:"french_segments,omitempty"`
}

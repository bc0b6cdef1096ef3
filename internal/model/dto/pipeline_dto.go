package dto

import "github.com/khotba/khotba_server/internal/model"

// VideoInfoRequest POST /api/video/info
type VideoInfoRequest struct {
	URL string `json:"url" binding:"required"`
}

type VideoInfoResponse struct {
	Title     string `json:"title"`
	Duration  int    `json:"duration"`
	Thumbnail string `json:"thumbnail"`
}

// TranscribeRequest POST /api/transcribe
type TranscribeRequest struct {
	URL               string `json:"url"`
	SourceType        string `json:"source_type"`
	UploadID          string `json:"upload_id"`
	Ext               string `json:"ext"`
	StartSeconds      int    `json:"start_seconds"`
	EndSeconds        int    `json:"end_seconds"`
	IncludeTimestamps *bool  `json:"include_timestamps"`
	RunID             string `json:"run_id"`
}

// WithTimestamps defaults to true when the field is omitted.
func (r *TranscribeRequest) WithTimestamps() bool {
	return r.IncludeTimestamps == nil || *r.IncludeTimestamps
}

type TranscribeResponse struct {
	ArabicText          string          `json:"arabic_text"`
	Segments            []model.Segment `json:"segments"`
	WhisperAudioSeconds float64         `json:"whisper_audio_seconds"`
	WhisperCostUSD      float64         `json:"whisper_cost_usd"`
	RunID               string          `json:"run_id"`
}

// TranslateRequest POST /api/translate
type TranslateRequest struct {
	Segments            []model.Segment `json:"segments"`
	ArabicText          string          `json:"arabic_text"`
	YouTubeURL          string          `json:"youtube_url"`
	VideoTitle          string          `json:"video_title" binding:"required"`
	ThumbnailURL        string          `json:"thumbnail_url"`
	StartSeconds        int             `json:"start_seconds"`
	EndSeconds          int             `json:"end_seconds"`
	IncludeTimestamps   *bool           `json:"include_timestamps"`
	WhisperAudioSeconds float64         `json:"whisper_audio_seconds"`
	WhisperCostUSD      float64         `json:"whisper_cost_usd"`
	SourceType          string          `json:"source_type"`
	UploadID            string          `json:"upload_id"`
	UploadFilename      string          `json:"upload_filename"`
	RunID               string          `json:"run_id"`
}

func (r *TranslateRequest) WithTimestamps() bool {
	return r.IncludeTimestamps == nil || *r.IncludeTimestamps
}

type TranslateResponse struct {
	FrenchText         string          `json:"french_text"`
	ArticleMarkdown    string          `json:"article_markdown"`
	TranslatedSegments []model.Segment `json:"translated_segments"`
	AnalysisID         *string         `json:"analysis_id"`
	Costs              model.Costs     `json:"costs"`
	RunID              string          `json:"run_id"`
}

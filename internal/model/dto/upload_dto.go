package dto

// UploadLimitsResponse GET /api/upload/limits
type UploadLimitsResponse struct {
	MaxFileSizeBytes   int64    `json:"max_file_size_bytes"`
	MaxDurationSeconds int      `json:"max_duration_seconds"`
	AllowedExtensions  []string `json:"allowed_extensions"`
}

// UploadResponse POST /api/upload
type UploadResponse struct {
	UploadID string `json:"upload_id"`
	Ext      string `json:"ext"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	FileSize int64  `json:"file_size"`
	Filename string `json:"filename"`
}

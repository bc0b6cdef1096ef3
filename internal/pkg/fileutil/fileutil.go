package fileutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/khotba/khotba_server/config"
)

// VideoExt is the container used for rendered subtitle videos.
const VideoExt = ".mp4"

// Layout is the on-disk layout: scratch dir, uploads dir and rendered-video cache dir.
type Layout struct {
	TmpDir     string
	UploadsDir string
	VideosDir  string
}

func NewLayout(cfg config.StorageConfig) *Layout {
	return &Layout{
		TmpDir:     cfg.TmpDir,
		UploadsDir: cfg.UploadsDir,
		VideosDir:  cfg.VideosDir,
	}
}

// EnsureDirs creates every directory of the layout.
func (l *Layout) EnsureDirs() error {
	for _, dir := range []string{l.TmpDir, l.UploadsDir, l.VideosDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// TmpPath returns a fresh scratch path with the given suffix (".m4a", ".srt", ...).
func (l *Layout) TmpPath(suffix string) string {
	return filepath.Join(l.TmpDir, uuid.NewString()+suffix)
}

// VideoPath is the cache path for a rendered video keyed by (analysis id, language).
func (l *Layout) VideoPath(analysisID, lang string) string {
	return filepath.Join(l.VideosDir, fmt.Sprintf("%s_%s%s", analysisID, lang, VideoExt))
}

// UploadPath is where an uploaded asset lives: {upload_id}{ext}.
func (l *Layout) UploadPath(uploadID, ext string) string {
	return filepath.Join(l.UploadsDir, uploadID+ext)
}

// ClearTmp empties the scratch directory and returns how many entries were removed.
func (l *Layout) ClearTmp() int {
	entries, err := os.ReadDir(l.TmpDir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(l.TmpDir, entry.Name())); err == nil {
			count++
		}
	}
	return count
}

// SafeRemove removes a file, ignoring every error. It never masks the caller's error.
func SafeRemove(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}

// Exists reports whether path exists as a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/khotba/khotba_server/config"
	"github.com/khotba/khotba_server/internal/model/dto"
	"github.com/khotba/khotba_server/internal/pkg/fileutil"
	"github.com/khotba/khotba_server/internal/pkg/media"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnreadableVideo   = errors.New("Impossible de lire la durée de la vidéo. Vérifiez que le fichier est valide.")
	ErrInvalidVideo      = errors.New("Vidéo invalide ou durée nulle.")
	ErrVideoTooLong      = errors.New("video too long")
)

// UploadService accepts local video files for later transcription.
type UploadService struct {
	runner media.Runner
	layout *fileutil.Layout
	cfg    *config.Config
	logger *slog.Logger
}

func NewUploadService(runner media.Runner, layout *fileutil.Layout, cfg *config.Config, logger *slog.Logger) *UploadService {
	return &UploadService{
		runner: runner,
		layout: layout,
		cfg:    cfg,
		logger: logger,
	}
}

// Limits returns the constraints uploads are checked against.
func (s *UploadService) Limits() *dto.UploadLimitsResponse {
	return &dto.UploadLimitsResponse{
		MaxFileSizeBytes:   s.cfg.Upload.MaxSize,
		MaxDurationSeconds: s.cfg.Upload.MaxDurationSeconds,
		AllowedExtensions:  s.allowedExtensions(),
	}
}

func (s *UploadService) allowedExtensions() []string {
	exts := make([]string, 0, len(s.cfg.Upload.AllowedExtensions))
	for _, ext := range s.cfg.Upload.AllowedExtensions {
		exts = append(exts, strings.ToLower(ext))
	}
	sort.Strings(exts)
	return exts
}

// ValidateExtension checks a client filename against the allow-list and
// returns its lowercase extension.
func (s *UploadService) ValidateExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := s.allowedExtensions()
	for _, a := range allowed {
		if a == ext {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: Format non supporté '%s'. Formats acceptés : %s",
		ErrUnsupportedFormat, ext, strings.Join(allowed, ", "))
}

// Save streams r to the uploads directory, enforcing the size ceiling while
// writing, then probes the duration. The file is removed on any rejection.
func (s *UploadService) Save(ctx context.Context, filename string, r io.Reader) (*dto.UploadResponse, error) {
	if filename == "" {
		filename = "upload"
	}
	ext, err := s.ValidateExtension(filename)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.layout.UploadsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}

	uploadID := uuid.NewString()
	savePath := s.layout.UploadPath(uploadID, ext)

	size, err := s.writeLimited(savePath, r)
	if err != nil {
		fileutil.SafeRemove(savePath)
		return nil, err
	}
	s.logger.Info("upload saved", "upload_id", uploadID, "ext", ext, "size", humanize.Bytes(uint64(size)))

	duration, err := media.ProbeDuration(ctx, s.runner, savePath)
	if err != nil {
		fileutil.SafeRemove(savePath)
		s.logger.Error("ffprobe failed", "path", savePath, "error", err)
		return nil, ErrUnreadableVideo
	}
	if duration <= 0 {
		fileutil.SafeRemove(savePath)
		return nil, ErrInvalidVideo
	}
	if maxDuration := s.cfg.Upload.MaxDurationSeconds; maxDuration > 0 && duration > float64(maxDuration) {
		fileutil.SafeRemove(savePath)
		return nil, fmt.Errorf("%w: Vidéo trop longue (%d min). Maximum autorisé : %d min.",
			ErrVideoTooLong, int(duration)/60, maxDuration/60)
	}

	title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	s.logger.Info("upload validated", "upload_id", uploadID, "duration", duration, "title", title)

	return &dto.UploadResponse{
		UploadID: uploadID,
		Ext:      ext,
		Title:    title,
		Duration: int(duration),
		FileSize: size,
		Filename: filename,
	}, nil
}

func (s *UploadService) writeLimited(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	maxSize := s.cfg.Upload.MaxSize
	// one byte past the limit is enough to know it was exceeded
	n, err := io.Copy(f, io.LimitReader(r, maxSize+1))
	if err != nil {
		return n, fmt.Errorf("failed to write upload: %w", err)
	}
	if n > maxSize {
		return n, fmt.Errorf("%w: Fichier trop volumineux. Maximum autorisé : %s.",
			ErrFileTooLarge, humanize.Bytes(uint64(maxSize)))
	}
	return n, nil
}

// ClientMessage strips the sentinel prefix of a wrapped upload error.
func ClientMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrUnsupportedFormat, ErrFileTooLarge, ErrVideoTooLong} {
		if errors.Is(err, sentinel) {
			return strings.TrimPrefix(msg, sentinel.Error()+": ")
		}
	}
	return msg
}

package cron

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"github.com/khotba/khotba_server/config"
	"github.com/khotba/khotba_server/internal/pkg/fileutil"
	"github.com/khotba/khotba_server/internal/repository"
	"github.com/khotba/khotba_server/internal/subtitle"
)

// Sweep categories.
const (
	KindUpload  = "upload"
	KindTmp     = "tmp"
	KindVideo   = "video"
	KindPartial = "partial"
)

// Removal is one file selected by a sweep.
type Removal struct {
	Kind string
	Path string
	Size int64
	Err  error
}

// Report summarises a sweep.
type Report struct {
	Removals []Removal
	DryRun   bool
	// Skipped is set when another sweep held the lock.
	Skipped bool
}

func (r *Report) Count(kind string) int {
	n := 0
	for _, rm := range r.Removals {
		if rm.Kind == kind && rm.Err == nil {
			n++
		}
	}
	return n
}

func (r *Report) Bytes() int64 {
	var total int64
	for _, rm := range r.Removals {
		if rm.Err == nil {
			total += rm.Size
		}
	}
	return total
}

type Service struct {
	analysisRepo *repository.AnalysisRepository
	layout       *fileutil.Layout
	cfg          config.CleanupConfig
	logger       *slog.Logger
	now          func() time.Time
	stopChan     chan struct{}
}

func NewService(
	analysisRepo *repository.AnalysisRepository,
	layout *fileutil.Layout,
	cfg config.CleanupConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		analysisRepo: analysisRepo,
		layout:       layout,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
		stopChan:     make(chan struct{}),
	}
}

// Start runs a sweep every interval until Stop.
func (s *Service) Start() {
	go s.runCleanup()
	s.logger.Info("cron service started", "interval_minutes", s.interval().Minutes())
}

func (s *Service) Stop() {
	close(s.stopChan)
	s.logger.Info("cron service stopped")
}

func (s *Service) interval() time.Duration {
	if s.cfg.IntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.cfg.IntervalMinutes) * time.Minute
}

func (s *Service) runCleanup() {
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if _, err := s.RunOnce(false); err != nil {
				s.logger.Error("cleanup failed", "error", err)
			}
		}
	}
}

// RunOnce sweeps orphan uploads, stale scratch files, abandoned partial renders
// and rendered videos whose record is gone. With dryRun nothing is removed.
// Only one sweep runs at a time across processes.
func (s *Service) RunOnce(dryRun bool) (*Report, error) {
	report := &Report{DryRun: dryRun}

	if s.cfg.LockFile != "" {
		lock := flock.New(s.cfg.LockFile)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire cleanup lock: %w", err)
		}
		if !locked {
			report.Skipped = true
			s.logger.Info("cleanup already running elsewhere, skipping")
			return report, nil
		}
		defer func() { _ = lock.Unlock() }()
	}

	uploads, err := s.orphanUploads()
	if err != nil {
		return nil, err
	}
	videos, err := s.orphanVideos()
	if err != nil {
		return nil, err
	}

	candidates := append(uploads, s.staleTmpFiles()...)
	candidates = append(candidates, videos...)

	for _, rm := range candidates {
		if !dryRun {
			rm = s.remove(rm)
		}
		report.Removals = append(report.Removals, rm)
	}

	if len(report.Removals) > 0 {
		s.logger.Info("cleanup summary",
			"dry_run", dryRun,
			"uploads", report.Count(KindUpload),
			"tmp", report.Count(KindTmp),
			"videos", report.Count(KindVideo),
			"partials", report.Count(KindPartial),
			"freed", humanize.Bytes(uint64(report.Bytes())))
	}
	return report, nil
}

// remove deletes one candidate. A file that is already gone counts as removed.
func (s *Service) remove(rm Removal) Removal {
	if err := os.Remove(rm.Path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("cleanup: failed to remove", "path", rm.Path, "error", err)
		rm.Err = err
	}
	return rm
}

// orphanUploads lists uploads past the expiry that no record references.
func (s *Service) orphanUploads() ([]Removal, error) {
	expireHours := s.cfg.UploadExpireHours
	if expireHours <= 0 {
		expireHours = 24
	}
	files := s.filesOlderThan(s.layout.UploadsDir, time.Duration(expireHours)*time.Hour)
	if len(files) == 0 {
		return nil, nil
	}

	refs, err := s.analysisRepo.ReferencedUploadIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to load upload references: %w", err)
	}

	var out []Removal
	for _, f := range files {
		name := filepath.Base(f.Path)
		uploadID := strings.TrimSuffix(name, filepath.Ext(name))
		if refs[uploadID] {
			continue
		}
		f.Kind = KindUpload
		out = append(out, f)
	}
	return out, nil
}

func (s *Service) tmpExpiry() time.Duration {
	if s.cfg.TmpExpireHours <= 0 {
		return 3 * time.Hour
	}
	return time.Duration(s.cfg.TmpExpireHours) * time.Hour
}

// staleTmpFiles lists scratch files past the expiry. Running extractions and
// renders keep their files well below it.
func (s *Service) staleTmpFiles() []Removal {
	files := s.filesOlderThan(s.layout.TmpDir, s.tmpExpiry())
	for i := range files {
		files[i].Kind = KindTmp
	}
	return files
}

// orphanVideos lists rendered videos whose record no longer exists, plus
// partial renders past the scratch expiry.
func (s *Service) orphanVideos() ([]Removal, error) {
	entries, err := os.ReadDir(s.layout.VideosDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.layout.VideosDir, err)
	}

	var out []Removal
	byID := map[string][]Removal{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := entry.Name()
		path := filepath.Join(s.layout.VideosDir, name)

		if strings.HasSuffix(name, subtitle.PartialSuffix) {
			if s.now().Sub(info.ModTime()) > s.tmpExpiry() {
				out = append(out, Removal{Kind: KindPartial, Path: path, Size: info.Size()})
			}
			continue
		}
		if !strings.HasSuffix(name, fileutil.VideoExt) {
			continue
		}
		// {analysis_id}_{lang}.mp4
		idx := strings.LastIndex(name, "_")
		if idx <= 0 {
			continue
		}
		id := name[:idx]
		byID[id] = append(byID[id], Removal{Kind: KindVideo, Path: path, Size: info.Size()})
	}

	if len(byID) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	existing, err := s.analysisRepo.ExistingIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check records: %w", err)
	}
	for id, removals := range byID {
		if !existing[id] {
			out = append(out, removals...)
		}
	}
	return out, nil
}

func (s *Service) filesOlderThan(dir string, age time.Duration) []Removal {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cleanup: failed to read dir", "dir", dir, "error", err)
		}
		return nil
	}

	var out []Removal
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if s.now().Sub(info.ModTime()) > age {
			out = append(out, Removal{Path: filepath.Join(dir, entry.Name()), Size: info.Size()})
		}
	}
	return out
}

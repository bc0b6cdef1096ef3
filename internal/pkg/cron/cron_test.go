package cron

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/khotba/khotba_server/config"
	"github.com/khotba/khotba_server/internal/logging"
	"github.com/khotba/khotba_server/internal/pkg/fileutil"
	"github.com/khotba/khotba_server/internal/repository"
	"github.com/khotba/khotba_server/internal/testutil"
)

func setupCronService(t *testing.T) (*Service, *gorm.DB, *fileutil.Layout) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	root := t.TempDir()
	layout := &fileutil.Layout{
		TmpDir:     filepath.Join(root, "tmp"),
		UploadsDir: filepath.Join(root, "uploads"),
		VideosDir:  filepath.Join(root, "videos"),
	}
	require.NoError(t, layout.EnsureDirs())

	cfg := config.CleanupConfig{
		IntervalMinutes:   60,
		UploadExpireHours: 24,
		TmpExpireHours:    3,
		LockFile:          filepath.Join(root, "cleanup.lock"),
	}
	svc := NewService(repository.NewAnalysisRepository(db), layout, cfg, logging.Nop())
	return svc, db, layout
}

func writeFile(t *testing.T, path string, age time.Duration) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestRunOnce(t *testing.T) {
	svc, db, layout := setupCronService(t)

	kept := testutil.TestAnalysis(t, db, testutil.WithUpload("11111111-1111-4111-8111-111111111111", "a.mp4"))

	referencedUpload := layout.UploadPath("11111111-1111-4111-8111-111111111111", ".mp4")
	orphanUpload := layout.UploadPath("22222222-2222-4222-8222-222222222222", ".mkv")
	freshUpload := layout.UploadPath("33333333-3333-4333-8333-333333333333", ".mp4")
	writeFile(t, referencedUpload, 48*time.Hour)
	writeFile(t, orphanUpload, 48*time.Hour)
	writeFile(t, freshUpload, time.Hour)

	staleTmp := filepath.Join(layout.TmpDir, "old.m4a")
	freshTmp := filepath.Join(layout.TmpDir, "new.srt")
	writeFile(t, staleTmp, 5*time.Hour)
	writeFile(t, freshTmp, time.Minute)

	keptVideo := layout.VideoPath(kept.ID, "arabic")
	orphanVideo := layout.VideoPath("44444444-4444-4444-8444-444444444444", "french")
	stalePart := filepath.Join(layout.VideosDir, ".x_arabic.abcd1234.part.mp4")
	activePart := filepath.Join(layout.VideosDir, ".y_arabic.abcd1234.part.mp4")
	writeFile(t, keptVideo, time.Hour)
	writeFile(t, orphanVideo, time.Hour)
	writeFile(t, stalePart, 5*time.Hour)
	writeFile(t, activePart, time.Minute)

	report, err := svc.RunOnce(false)
	require.NoError(t, err)
	assert.False(t, report.Skipped)

	assert.Equal(t, 1, report.Count(KindUpload))
	assert.Equal(t, 1, report.Count(KindTmp))
	assert.Equal(t, 1, report.Count(KindVideo))
	assert.Equal(t, 1, report.Count(KindPartial))
	assert.Equal(t, int64(16), report.Bytes())

	for _, gone := range []string{orphanUpload, staleTmp, orphanVideo, stalePart} {
		assert.False(t, fileutil.Exists(gone), gone)
	}
	for _, path := range []string{referencedUpload, freshUpload, freshTmp, keptVideo, activePart} {
		assert.True(t, fileutil.Exists(path), path)
	}
}

func TestRunOnce_DryRun(t *testing.T) {
	svc, _, layout := setupCronService(t)
	orphan := layout.UploadPath("22222222-2222-4222-8222-222222222222", ".mkv")
	writeFile(t, orphan, 48*time.Hour)

	report, err := svc.RunOnce(true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Count(KindUpload))
	assert.True(t, fileutil.Exists(orphan))
}

func TestRunOnce_SkipsWhenLocked(t *testing.T) {
	svc, _, layout := setupCronService(t)
	orphan := layout.UploadPath("22222222-2222-4222-8222-222222222222", ".mkv")
	writeFile(t, orphan, 48*time.Hour)

	other := flock.New(svc.cfg.LockFile)
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer other.Unlock()

	report, err := svc.RunOnce(false)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.True(t, fileutil.Exists(orphan))
}

func TestStartStop(t *testing.T) {
	svc, _, _ := setupCronService(t)
	svc.Start()
	svc.Stop()
}

func TestRemove_AlreadyGoneCountsAsRemoved(t *testing.T) {
	svc, _, layout := setupCronService(t)

	rm := svc.remove(Removal{Kind: KindTmp, Path: filepath.Join(layout.TmpDir, "vanished.m4a"), Size: 4})
	assert.NoError(t, rm.Err)

	report := &Report{Removals: []Removal{rm}}
	assert.Equal(t, 1, report.Count(KindTmp))
	assert.Equal(t, int64(4), report.Bytes())
}

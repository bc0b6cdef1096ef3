package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khotba/khotba_server/internal/pkg/media"
	"github.com/khotba/khotba_server/internal/testutil"
)

func probeOutput(duration string) func(testutil.Call) (*media.Output, error) {
	return func(call testutil.Call) (*media.Output, error) {
		return &media.Output{Stdout: `{"format":{"duration":"` + duration + `"}}`}, nil
	}
}

func uploadEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestUploadService_Limits(t *testing.T) {
	svc := NewUploadService(testutil.NewFakeRunner(nil), newTestLayout(t), newTestConfig(), testLogger)

	limits := svc.Limits()
	assert.Equal(t, int64(1024), limits.MaxFileSizeBytes)
	assert.Equal(t, 7200, limits.MaxDurationSeconds)
	assert.Equal(t, []string{".mkv", ".mov", ".mp4"}, limits.AllowedExtensions)
}

func TestUploadService_Save(t *testing.T) {
	layout := newTestLayout(t)
	runner := testutil.NewFakeRunner(probeOutput("1234.56"))
	svc := NewUploadService(runner, layout, newTestConfig(), testLogger)

	resp, err := svc.Save(context.Background(), "Khotba du vendredi.MP4", strings.NewReader("fake video bytes"))
	require.NoError(t, err)

	assert.Equal(t, ".mp4", resp.Ext)
	assert.Equal(t, "Khotba du vendredi", resp.Title)
	assert.Equal(t, 1234, resp.Duration)
	assert.Equal(t, int64(16), resp.FileSize)
	assert.Equal(t, "Khotba du vendredi.MP4", resp.Filename)

	path := layout.UploadPath(resp.UploadID, resp.Ext)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fake video bytes", string(data))

	calls := runner.CallsTo("ffprobe")
	require.Len(t, calls, 1)
	assert.Equal(t, path, calls[0].LastArg())
}

func TestUploadService_Save_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		body     string
		handler  func(testutil.Call) (*media.Output, error)
		wantErr  error
		wantMsg  string
	}{
		{
			name:     "unsupported extension",
			filename: "notes.txt",
			body:     "x",
			wantErr:  ErrUnsupportedFormat,
			wantMsg:  "Format non supporté '.txt'. Formats acceptés : .mkv, .mov, .mp4",
		},
		{
			name:     "too large",
			filename: "big.mp4",
			body:     strings.Repeat("x", 1025),
			wantErr:  ErrFileTooLarge,
		},
		{
			name:     "unreadable",
			filename: "broken.mp4",
			body:     "x",
			handler: func(testutil.Call) (*media.Output, error) {
				return nil, errors.New("ffprobe error: Invalid data")
			},
			wantErr: ErrUnreadableVideo,
		},
		{
			name:     "zero duration",
			filename: "empty.mp4",
			body:     "x",
			handler:  probeOutput("0"),
			wantErr:  ErrInvalidVideo,
		},
		{
			name:     "too long",
			filename: "long.mov",
			body:     "x",
			handler:  probeOutput("7260.5"),
			wantErr:  ErrVideoTooLong,
			wantMsg:  "Vidéo trop longue (121 min). Maximum autorisé : 120 min.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := newTestLayout(t)
			svc := NewUploadService(testutil.NewFakeRunner(tt.handler), layout, newTestConfig(), testLogger)

			_, err := svc.Save(context.Background(), tt.filename, strings.NewReader(tt.body))
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, ClientMessage(err))
			}
			assert.Empty(t, uploadEntries(t, layout.UploadsDir))
		})
	}
}

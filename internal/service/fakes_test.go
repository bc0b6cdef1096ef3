package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/khotba/khotba_server/config"
	"github.com/khotba/khotba_server/internal/audio"
	"github.com/khotba/khotba_server/internal/logging"
	"github.com/khotba/khotba_server/internal/model"
	"github.com/khotba/khotba_server/internal/pkg/fileutil"
	"github.com/khotba/khotba_server/internal/pkg/pubsub"
	"github.com/khotba/khotba_server/internal/source"
	"github.com/khotba/khotba_server/internal/subtitle"
	"github.com/khotba/khotba_server/internal/transcribe"
	"github.com/khotba/khotba_server/internal/translate"
)

func newTestLayout(t *testing.T) *fileutil.Layout {
	t.Helper()
	root := t.TempDir()
	layout := &fileutil.Layout{
		TmpDir:     filepath.Join(root, "tmp"),
		UploadsDir: filepath.Join(root, "uploads"),
		VideosDir:  filepath.Join(root, "videos"),
	}
	require.NoError(t, layout.EnsureDirs())
	return layout
}

func newTestConfig() *config.Config {
	return &config.Config{
		Upload: config.UploadConfig{
			MaxSize:            1024,
			MaxDurationSeconds: 7200,
			AllowedExtensions:  []string{".mp4", ".MKV", ".mov"},
		},
		Pipeline: config.PipelineConfig{MaxSegmentSeconds: 1800},
	}
}

type fakeResolver struct {
	info  *source.VideoInfo
	err   error
	calls int
}

func (f *fakeResolver) Info(ctx context.Context, url string) (*source.VideoInfo, error) {
	f.calls++
	return f.info, f.err
}

type fakeExtractor struct {
	layout      *fileutil.Layout
	resolveErr  error
	extractErr  error
	inputs      []string
	clipPaths   []string
	extractions int
}

func (f *fakeExtractor) Resolve(ctx context.Context, src audio.Source) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	input := src.LocalPath
	if !src.IsLocal() {
		input = "https://stream.example/audio"
	}
	f.inputs = append(f.inputs, input)
	return input, nil
}

func (f *fakeExtractor) ExtractInput(ctx context.Context, input string, start, end int) (*audio.Clip, error) {
	f.extractions++
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	path := f.layout.TmpPath(".m4a")
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		return nil, err
	}
	f.clipPaths = append(f.clipPaths, path)
	return &audio.Clip{Path: path, Duration: float64(end - start)}, nil
}

type fakeTranscriber struct {
	result *transcribe.Result
	err    error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string, duration float64, withTimestamps bool) (*transcribe.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	if !withTimestamps {
		res.Segments = []model.Segment{}
	}
	return &res, nil
}

// fakeTranslator prefixes every text with "FR:" and keeps timings.
type fakeTranslator struct {
	err   error
	calls int
}

func (f *fakeTranslator) Translate(ctx context.Context, segments []model.Segment, text string, withTimestamps bool) (*translate.Translation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	tr := &translate.Translation{
		Text:    "FR: " + text,
		Usage:   translate.Usage{InputTokens: 100, OutputTokens: 50},
		CostUSD: 0.001,
	}
	if withTimestamps {
		for _, s := range segments {
			tr.Segments = append(tr.Segments, model.Segment{Start: s.Start, End: s.End, Text: "FR: " + s.Text})
		}
	}
	return tr, nil
}

func (f *fakeTranslator) TranslateWithArticle(ctx context.Context, segments []model.Segment, text string, withTimestamps bool) (*translate.Translation, *translate.Article, error) {
	tr, err := f.Translate(ctx, segments, text, withTimestamps)
	if err != nil {
		return nil, nil, err
	}
	return tr, &translate.Article{
		Markdown: "# Khotba",
		Usage:    translate.Usage{InputTokens: 200, OutputTokens: 400},
		CostUSD:  0.002,
	}, nil
}

type fakeVideos struct {
	mu          sync.Mutex
	invalidated []string
	all         []string
}

func (f *fakeVideos) Invalidate(analysisID, lang string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, lang)
}

func (f *fakeVideos) InvalidateAll(analysisID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.all = append(f.all, analysisID)
}

type fakeRenderer struct {
	layout   *fileutil.Layout
	err      error
	requests []subtitle.Request
}

func (f *fakeRenderer) Render(ctx context.Context, req subtitle.Request) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	path := f.layout.VideoPath(req.AnalysisID, req.Lang)
	if fileutil.Exists(path) {
		return path, true, nil
	}
	f.requests = append(f.requests, req)
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		return "", false, err
	}
	return path, false, nil
}

func (f *fakeRenderer) Invalidate(analysisID, lang string) {
	fileutil.SafeRemove(f.layout.VideoPath(analysisID, lang))
}

func (f *fakeRenderer) InvalidateAll(analysisID string) {
	for _, lang := range model.Languages {
		f.Invalidate(analysisID, lang)
	}
}

type fakeMirror struct {
	uploaded []string
	deleted  []string
}

func (f *fakeMirror) UploadVideo(localPath, analysisID, lang string) (string, error) {
	f.uploaded = append(f.uploaded, analysisID+"_"+lang)
	return "https://cdn.example.com/videos/" + analysisID + "_" + lang + ".mp4", nil
}

func (f *fakeMirror) DeleteVideo(analysisID, lang string) error {
	f.deleted = append(f.deleted, analysisID+"_"+lang)
	return nil
}

// progressRecorder collects events from a local publisher.
type progressRecorder struct {
	mu     sync.Mutex
	events []pubsub.ProgressMessage
}

func (r *progressRecorder) publisher() *pubsub.Publisher {
	return pubsub.NewLocalPublisher(func(msg *pubsub.ProgressMessage) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, *msg)
	})
}

func (r *progressRecorder) stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	stages := make([]string, 0, len(r.events))
	for _, e := range r.events {
		stages = append(stages, e.Stage)
	}
	return stages
}

func (r *progressRecorder) last() pubsub.ProgressMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

var testLogger = logging.Nop()

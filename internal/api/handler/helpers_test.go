package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/khotba/khotba_server/config"
	"github.com/khotba/khotba_server/internal/audio"
	"github.com/khotba/khotba_server/internal/logging"
	"github.com/khotba/khotba_server/internal/model"
	"github.com/khotba/khotba_server/internal/pkg/fileutil"
	"github.com/khotba/khotba_server/internal/pkg/response"
	"github.com/khotba/khotba_server/internal/source"
	"github.com/khotba/khotba_server/internal/subtitle"
	"github.com/khotba/khotba_server/internal/transcribe"
	"github.com/khotba/khotba_server/internal/translate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testLogger = logging.Nop()

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// decodeData re-decodes the envelope's data into out.
func decodeData(t *testing.T, resp response.Response, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

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
			MaxSize:            64,
			MaxDurationSeconds: 7200,
			AllowedExtensions:  []string{".mp4", ".mkv"},
		},
		Pipeline: config.PipelineConfig{MaxSegmentSeconds: 1800},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

type stubResolver struct{ calls int }

func (s *stubResolver) Info(ctx context.Context, url string) (*source.VideoInfo, error) {
	s.calls++
	return &source.VideoInfo{Title: "Khotba", Duration: 1800, Thumbnail: "https://i.ytimg.com/t.jpg"}, nil
}

type stubExtractor struct{ layout *fileutil.Layout }

func (s *stubExtractor) Resolve(ctx context.Context, src audio.Source) (string, error) {
	return "https://stream.example/audio", nil
}

func (s *stubExtractor) ExtractInput(ctx context.Context, input string, start, end int) (*audio.Clip, error) {
	path := s.layout.TmpPath(".m4a")
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		return nil, err
	}
	return &audio.Clip{Path: path, Duration: float64(end - start)}, nil
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, audioPath string, duration float64, withTimestamps bool) (*transcribe.Result, error) {
	return &transcribe.Result{
		Text:         "بسم الله",
		Segments:     []model.Segment{{Start: 0, End: duration, Text: "بسم الله"}},
		AudioSeconds: duration,
		CostUSD:      transcribe.RoundCost(duration * 0.0000308),
	}, nil
}

type stubTranslator struct{}

func (stubTranslator) Translate(ctx context.Context, segments []model.Segment, text string, withTimestamps bool) (*translate.Translation, error) {
	tr := &translate.Translation{Text: "FR: " + text}
	for _, s := range segments {
		tr.Segments = append(tr.Segments, model.Segment{Start: s.Start, End: s.End, Text: "FR: " + s.Text})
	}
	return tr, nil
}

func (t stubTranslator) TranslateWithArticle(ctx context.Context, segments []model.Segment, text string, withTimestamps bool) (*translate.Translation, *translate.Article, error) {
	tr, _ := t.Translate(ctx, segments, text, withTimestamps)
	return tr, &translate.Article{Markdown: "# Khotba"}, nil
}

// stubRenderer writes a small file at the cache path.
type stubRenderer struct{ layout *fileutil.Layout }

func (s *stubRenderer) Render(ctx context.Context, req subtitle.Request) (string, bool, error) {
	path := s.layout.VideoPath(req.AnalysisID, req.Lang)
	if fileutil.Exists(path) {
		return path, true, nil
	}
	return path, false, os.WriteFile(path, []byte("mp4 bytes"), 0644)
}

func (s *stubRenderer) Invalidate(analysisID, lang string) {
	fileutil.SafeRemove(s.layout.VideoPath(analysisID, lang))
}

func (s *stubRenderer) InvalidateAll(analysisID string) {
	for _, lang := range model.Languages {
		s.Invalidate(analysisID, lang)
	}
}

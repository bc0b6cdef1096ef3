package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khotba/khotba_server/internal/logging"
	"github.com/khotba/khotba_server/internal/pkg/media"
	"github.com/khotba/khotba_server/internal/source"
	"github.com/khotba/khotba_server/internal/testutil"
)

const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func ytdlpFailure(line string) error {
	return &media.ToolError{Tool: "yt-dlp", LastLine: line, Err: errors.New("exit status 1")}
}

func TestResolver_Info_Primary(t *testing.T) {
	runner := testutil.NewFakeRunner(func(call testutil.Call) (*media.Output, error) {
		return &media.Output{Stdout: `{"title":"Khotba du vendredi","duration":3605.4,"thumbnail":"https://i.ytimg.com/x.jpg"}`}, nil
	})
	yt := &source.YtDlp{Runner: runner, CookiesFile: "/secrets/cookies.txt"}
	r := source.NewResolver([]source.MetadataProvider{yt}, nil, logging.Nop())

	info, err := r.Info(context.Background(), videoURL)
	require.NoError(t, err)
	assert.Equal(t, "Khotba du vendredi", info.Title)
	assert.Equal(t, 3605, info.Duration)
	assert.Equal(t, "https://i.ytimg.com/x.jpg", info.Thumbnail)

	calls := runner.CallsTo("yt-dlp")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Args, "--dump-json")
	assert.True(t, calls[0].Has("--cookies", "/secrets/cookies.txt"))
	assert.Equal(t, videoURL, calls[0].LastArg())
}

func TestResolver_Info_FallsBackToOEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, videoURL, r.URL.Query().Get("url"))
		w.Write([]byte(`{"title":"Khotba","thumbnail_url":"https://i.ytimg.com/hq.jpg"}`))
	}))
	defer server.Close()

	runner := testutil.NewFakeRunner(func(call testutil.Call) (*media.Output, error) {
		return &media.Output{}, ytdlpFailure("ERROR: Sign in to confirm you're not a bot")
	})
	r := source.NewResolver([]source.MetadataProvider{
		&source.YtDlp{Runner: runner},
		&source.OEmbed{Client: server.Client(), Endpoint: server.URL},
	}, nil, logging.Nop())

	info, err := r.Info(context.Background(), videoURL)
	require.NoError(t, err)
	assert.Equal(t, "Khotba", info.Title)
	assert.Equal(t, 0, info.Duration)
	assert.Len(t, runner.Calls(), 1)
}

func TestResolver_Info_AllFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	runner := testutil.NewFakeRunner(func(call testutil.Call) (*media.Output, error) {
		return &media.Output{}, ytdlpFailure("ERROR: [youtube] dQw4w9WgXcQ: Video unavailable")
	})
	r := source.NewResolver([]source.MetadataProvider{
		&source.YtDlp{Runner: runner},
		&source.OEmbed{Client: server.Client(), Endpoint: server.URL},
	}, nil, logging.Nop())

	_, err := r.Info(context.Background(), videoURL)
	var resolveErr *source.ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, source.StageMetadata, resolveErr.Stage)
	assert.Len(t, resolveErr.Attempts, 2)
	assert.Equal(t, "Video is private or unavailable", resolveErr.Reason())

	var toolErr *media.ToolError
	assert.ErrorAs(t, err, &toolErr)
}

func TestResolver_InvalidURLMakesNoCalls(t *testing.T) {
	runner := testutil.NewFakeRunner(nil)
	yt := &source.YtDlp{Runner: runner}
	r := source.NewResolver([]source.MetadataProvider{yt}, []source.StreamProvider{yt}, logging.Nop())

	_, err := r.Info(context.Background(), "https://example.com/video")
	assert.ErrorIs(t, err, source.ErrInvalidURL)
	_, err = r.Stream(context.Background(), "not a url", source.StreamAudio)
	assert.ErrorIs(t, err, source.ErrInvalidURL)
	assert.Empty(t, runner.Calls())
}

func TestResolver_Stream_FallbackOrder(t *testing.T) {
	runner := testutil.NewFakeRunner(func(call testutil.Call) (*media.Output, error) {
		if call.Has("--extractor-args", "youtube:player_client=android") {
			return &media.Output{Stdout: "https://rr1.googlevideo.com/audio\n"}, nil
		}
		return &media.Output{}, ytdlpFailure("ERROR: HTTP Error 403: Forbidden")
	})
	r := source.NewResolver(nil, []source.StreamProvider{
		&source.YtDlp{Runner: runner},
		&source.YtDlp{Runner: runner, PlayerClient: "android"},
	}, logging.Nop())

	loc, err := r.Stream(context.Background(), videoURL, source.StreamAudio)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://rr1.googlevideo.com/audio"}, loc.URLs)

	calls := runner.Calls()
	require.Len(t, calls, 2)
	assert.True(t, calls[0].Has("-f", "bestaudio[ext=m4a]/bestaudio[ext=webm]/bestaudio"))
	assert.Contains(t, calls[0].Args, "--get-url")
}

func TestResolver_Stream_VideoReturnsTwoURLs(t *testing.T) {
	runner := testutil.NewFakeRunner(func(call testutil.Call) (*media.Output, error) {
		return &media.Output{Stdout: "https://v.example/video\nhttps://v.example/audio\n"}, nil
	})
	r := source.NewResolver(nil, []source.StreamProvider{&source.YtDlp{Runner: runner}}, logging.Nop())

	loc, err := r.Stream(context.Background(), videoURL, source.StreamVideo)
	require.NoError(t, err)
	assert.Len(t, loc.URLs, 2)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Has("-f", "best[ext=mp4]/best"))
}

func TestResolver_Stream_EmptyOutputFails(t *testing.T) {
	runner := testutil.NewFakeRunner(func(call testutil.Call) (*media.Output, error) {
		return &media.Output{Stdout: "\n"}, nil
	})
	r := source.NewResolver(nil, []source.StreamProvider{&source.YtDlp{Runner: runner}}, logging.Nop())

	_, err := r.Stream(context.Background(), videoURL, source.StreamAudio)
	var resolveErr *source.ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, source.StageStream, resolveErr.Stage)
}

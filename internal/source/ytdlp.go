package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/khotba/khotba_server/internal/pkg/media"
)

const (
	audioFormat = "bestaudio[ext=m4a]/bestaudio[ext=webm]/bestaudio"
	videoFormat = "best[ext=mp4]/best"
)

// YtDlp resolves through the yt-dlp executable. PlayerClient selects an alternate
// extractor client, which often succeeds when the default one is throttled.
type YtDlp struct {
	Runner       media.Runner
	CookiesFile  string
	PlayerClient string
}

func (y *YtDlp) Name() string {
	if y.PlayerClient != "" {
		return "yt-dlp/" + y.PlayerClient
	}
	return "yt-dlp"
}

func (y *YtDlp) baseArgs() []string {
	args := []string{"--no-playlist"}
	if y.PlayerClient != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+y.PlayerClient)
	}
	if y.CookiesFile != "" {
		args = append(args, "--cookies", y.CookiesFile)
	}
	return args
}

type dumpJSON struct {
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	Thumbnail string  `json:"thumbnail"`
}

func (y *YtDlp) Info(ctx context.Context, url string) (*VideoInfo, error) {
	args := append(y.baseArgs(), "--dump-json", "--skip-download", url)
	out, err := y.Runner.Run(ctx, media.ResolveTimeout, "yt-dlp", args...)
	if err != nil {
		return nil, err
	}

	var data dumpJSON
	if err := json.Unmarshal([]byte(out.Stdout), &data); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	if data.Title == "" {
		data.Title = "Unknown"
	}
	return &VideoInfo{
		Title:     data.Title,
		Duration:  int(data.Duration),
		Thumbnail: data.Thumbnail,
	}, nil
}

func (y *YtDlp) Stream(ctx context.Context, url string, kind StreamKind) (*StreamLocator, error) {
	format := audioFormat
	if kind == StreamVideo {
		format = videoFormat
	}
	args := append(y.baseArgs(), "-f", format, "--get-url", url)
	out, err := y.Runner.Run(ctx, media.ResolveTimeout, "yt-dlp", args...)
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, line := range strings.Split(out.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			urls = append(urls, line)
		}
	}
	if kind == StreamAudio && len(urls) > 1 {
		urls = urls[:1]
	}
	return &StreamLocator{URLs: urls}, nil
}

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const defaultOEmbedEndpoint = "https://www.youtube.com/oembed"

// OEmbed reads title and thumbnail from the public oEmbed endpoint. It has no
// duration, so Duration is left at zero.
type OEmbed struct {
	Client   *http.Client
	Endpoint string
}

func (o *OEmbed) Name() string { return "oembed" }

type oembedResponse struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (o *OEmbed) Info(ctx context.Context, videoURL string) (*VideoInfo, error) {
	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = defaultOEmbedEndpoint
	}
	q := url.Values{"url": {videoURL}, "format": {"json"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oembed returned status %d", resp.StatusCode)
	}

	var data oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode oembed response: %w", err)
	}
	if data.Title == "" {
		return nil, fmt.Errorf("oembed response has no title")
	}
	return &VideoInfo{Title: data.Title, Thumbnail: data.ThumbnailURL}, nil
}

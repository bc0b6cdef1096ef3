package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/text/unicode/norm"

	"github.com/khotba/khotba_server/config"
	"github.com/khotba/khotba_server/internal/model"
)

var ErrMissingAPIKey = errors.New("Groq API key is not configured")

const language = "ar"

// Provider is the OpenAI-compatible transcription endpoint.
type Provider interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

type Result struct {
	Text         string
	Segments     []model.Segment
	AudioSeconds float64
	CostUSD      float64
}

type Client struct {
	cfg    config.GroqConfig
	logger *slog.Logger

	mu       sync.Mutex
	provider Provider
}

// NewClient builds a client for the configured Groq endpoint. The key is checked
// on each call, so a server without credentials still starts.
func NewClient(cfg config.GroqConfig, logger *slog.Logger) *Client {
	return &Client{cfg: cfg, logger: logger}
}

// NewClientWithProvider is used by tests and alternate backends.
func NewClientWithProvider(cfg config.GroqConfig, provider Provider, logger *slog.Logger) *Client {
	return &Client{cfg: cfg, provider: provider, logger: logger}
}

func (c *Client) getProvider() (Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider != nil {
		return c.provider, nil
	}
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	oc := openai.DefaultConfig(c.cfg.APIKey)
	if c.cfg.BaseURL != "" {
		oc.BaseURL = c.cfg.BaseURL
	}
	c.provider = openai.NewClientWithConfig(oc)
	return c.provider, nil
}

// Transcribe sends the clip at audioPath (duration seconds long) for Arabic speech recognition.
func (c *Client) Transcribe(ctx context.Context, audioPath string, duration float64, withTimestamps bool) (*Result, error) {
	provider, err := c.getProvider()
	if err != nil {
		return nil, err
	}

	format := openai.AudioResponseFormatJSON
	if withTimestamps {
		format = openai.AudioResponseFormatVerboseJSON
	}

	t0 := time.Now()
	resp, err := provider.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.Model,
		FilePath: audioPath,
		Language: language,
		Format:   format,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}

	result := &Result{
		AudioSeconds: duration,
		CostUSD:      RoundCost(duration * c.cfg.CostPerSecond),
	}

	if !withTimestamps {
		result.Text = normalize(resp.Text)
		result.Segments = []model.Segment{}
	} else if len(resp.Segments) > 0 {
		result.Segments = make([]model.Segment, 0, len(resp.Segments))
		for _, s := range resp.Segments {
			result.Segments = append(result.Segments, model.Segment{
				Start: round2(s.Start),
				End:   round2(s.End),
				Text:  normalize(s.Text),
			})
		}
		result.Text = model.JoinText(result.Segments)
	} else {
		// no segments but a flat text: one segment covering the whole clip
		result.Text = normalize(resp.Text)
		result.Segments = []model.Segment{{Start: 0, End: round2(duration), Text: result.Text}}
	}

	c.logger.Info("transcription completed",
		"timestamps", withTimestamps,
		"segments", len(result.Segments),
		"audio_seconds", duration,
		"cost_usd", result.CostUSD,
		"elapsed", time.Since(t0).Round(time.Millisecond))
	return result, nil
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundCost rounds a USD amount to 6 decimals.
func RoundCost(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

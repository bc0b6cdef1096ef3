package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/khotba/khotba_server/config"
	"github.com/khotba/khotba_server/internal/model"
)

var ErrMissingAPIKey = errors.New("Gemini API key is not configured")

type Translation struct {
	Text     string
	Segments []model.Segment
	Usage    Usage
	CostUSD  float64
}

type Article struct {
	Markdown string
	Usage    Usage
	CostUSD  float64
}

type Client struct {
	cfg    config.GeminiConfig
	logger *slog.Logger

	mu        sync.Mutex
	generator Generator
}

func NewClient(cfg config.GeminiConfig, logger *slog.Logger) *Client {
	return &Client{cfg: cfg, logger: logger}
}

func NewClientWithGenerator(cfg config.GeminiConfig, generator Generator, logger *slog.Logger) *Client {
	return &Client{cfg: cfg, generator: generator, logger: logger}
}

func (c *Client) getGenerator(ctx context.Context) (Generator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generator != nil {
		return c.generator, nil
	}
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	g, err := newGeminiGenerator(ctx, c.cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.generator = g
	return g, nil
}

// Translate renders Arabic into French. With timestamps and segments the model is
// asked for a JSON segment array; otherwise the flat text is translated.
func (c *Client) Translate(ctx context.Context, segments []model.Segment, text string, withTimestamps bool) (*Translation, error) {
	gen, err := c.getGenerator(ctx)
	if err != nil {
		return nil, err
	}

	segmented := withTimestamps && len(segments) > 0
	var prompt string
	if segmented {
		payload, err := json.Marshal(segments)
		if err != nil {
			return nil, err
		}
		prompt = fmt.Sprintf(segmentsPrompt, payload)
	} else {
		prompt = fmt.Sprintf(plainPrompt, text)
	}

	t0 := time.Now()
	raw, usage, err := gen.Generate(ctx, c.cfg.Model, prompt)
	if err != nil {
		return nil, fmt.Errorf("translation request failed: %w", err)
	}

	tr := &Translation{
		Usage:   usage,
		CostUSD: Cost(usage, c.cfg.InputCostPerM, c.cfg.OutputCostPerM),
	}
	if segmented {
		var ok bool
		tr.Segments, ok = parseSegments(raw, segments)
		if !ok {
			c.logger.Warn("could not parse translated segments, using raw text as a single segment")
		}
		tr.Text = model.JoinText(tr.Segments)
	} else {
		tr.Segments = []model.Segment{}
		tr.Text = strings.TrimSpace(raw)
	}

	c.logger.Info("translation completed",
		"segments", len(tr.Segments),
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"cost_usd", tr.CostUSD,
		"elapsed", time.Since(t0).Round(time.Millisecond))
	return tr, nil
}

// GenerateArticle produces a headed French article from the full Arabic text.
func (c *Client) GenerateArticle(ctx context.Context, text string) (*Article, error) {
	gen, err := c.getGenerator(ctx)
	if err != nil {
		return nil, err
	}

	t0 := time.Now()
	raw, usage, err := gen.Generate(ctx, c.cfg.ArticleModel, fmt.Sprintf(articlePrompt, text))
	if err != nil {
		return nil, fmt.Errorf("article request failed: %w", err)
	}

	art := &Article{
		Markdown: strings.TrimSpace(raw),
		Usage:    usage,
		CostUSD:  Cost(usage, c.cfg.ArticleInputCostPerM, c.cfg.ArticleOutputCostPerM),
	}
	c.logger.Info("article generated",
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"cost_usd", art.CostUSD,
		"elapsed", time.Since(t0).Round(time.Millisecond))
	return art, nil
}

// TranslateWithArticle runs both requests concurrently; either failure fails the call.
func (c *Client) TranslateWithArticle(ctx context.Context, segments []model.Segment, text string, withTimestamps bool) (*Translation, *Article, error) {
	if _, err := c.getGenerator(ctx); err != nil {
		return nil, nil, err
	}

	var (
		tr  *Translation
		art *Article
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tr, err = c.Translate(gctx, segments, text, withTimestamps)
		return err
	})
	g.Go(func() error {
		var err error
		art, err = c.GenerateArticle(gctx, text)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tr, art, nil
}

// Cost is (input*inRate + output*outRate) / 1e6 with rates per million tokens, rounded to 6 decimals.
func Cost(u Usage, inputPerM, outputPerM float64) float64 {
	cost := (float64(u.InputTokens)*inputPerM + float64(u.OutputTokens)*outputPerM) / 1e6
	return math.Round(cost*1e6) / 1e6
}

// parseSegments decodes the model's JSON array, tolerating a markdown fence.
// Anything else yields exactly one segment holding the raw response.
func parseSegments(raw string, source []model.Segment) ([]model.Segment, bool) {
	body := stripFence(strings.TrimSpace(raw))

	var segs []model.Segment
	if err := json.Unmarshal([]byte(body), &segs); err == nil && segs != nil {
		return segs, true
	}

	fallback := model.Segment{Text: body}
	if len(source) > 0 {
		fallback.Start = source[0].Start
		fallback.End = source[len(source)-1].End
	}
	return []model.Segment{fallback}, false
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

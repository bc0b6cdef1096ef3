package subtitle

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/khotba/khotba_server/internal/model"
)

// FormatTimestamp renders seconds as HH:MM:SS,mmm, rounded to the millisecond.
func FormatTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3600000
	m := (ms / 60000) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// Generate builds an SRT document, cues numbered from 1.
func Generate(segments []model.Segment) string {
	cues := make([]string, 0, len(segments))
	for i, seg := range segments {
		cues = append(cues, fmt.Sprintf("%d\n%s --> %s\n%s\n",
			i+1, FormatTimestamp(seg.Start), FormatTimestamp(seg.End), strings.TrimSpace(seg.Text)))
	}
	return strings.Join(cues, "\n")
}

var (
	blankLineRe = regexp.MustCompile(`\n[ \t]*\n`)
	timingRe    = regexp.MustCompile(`^(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})`)
)

// Parse reads an SRT document back into segments.
func Parse(srt string) ([]model.Segment, error) {
	srt = strings.ReplaceAll(srt, "\r\n", "\n")
	srt = strings.TrimPrefix(srt, "\ufeff")

	var segments []model.Segment
	for _, block := range blankLineRe.Split(strings.TrimSpace(srt), -1) {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) == 1 && lines[0] == "" {
			continue
		}
		if len(lines) < 2 {
			return nil, fmt.Errorf("malformed cue %q", block)
		}
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil {
			return nil, fmt.Errorf("malformed cue index %q", lines[0])
		}
		m := timingRe.FindStringSubmatch(strings.TrimSpace(lines[1]))
		if m == nil {
			return nil, fmt.Errorf("malformed cue timing %q", lines[1])
		}
		segments = append(segments, model.Segment{
			Start: parseTime(m[1:5]),
			End:   parseTime(m[5:9]),
			Text:  strings.TrimSpace(strings.Join(lines[2:], "\n")),
		})
	}
	return segments, nil
}

func parseTime(parts []string) float64 {
	h, _ := strconv.ParseInt(parts[0], 10, 64)
	m, _ := strconv.ParseInt(parts[1], 10, 64)
	s, _ := strconv.ParseInt(parts[2], 10, 64)
	ms, _ := strconv.ParseInt(parts[3], 10, 64)
	return float64(((h*60+m)*60+s)*1000+ms) / 1000
}

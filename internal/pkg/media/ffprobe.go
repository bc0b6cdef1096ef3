package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration returns a media file's duration in seconds using ffprobe.
func ProbeDuration(ctx context.Context, runner Runner, path string) (float64, error) {
	out, err := runner.Run(ctx, ProbeTimeout, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	if err != nil {
		return 0, err
	}

	var probe probeFormat
	if err := json.Unmarshal([]byte(out.Stdout), &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if probe.Format.Duration == "" {
		return 0, nil
	}
	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ffprobe duration %q: %w", probe.Format.Duration, err)
	}
	return duration, nil
}

package source

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution stages.
const (
	StageMetadata = "metadata"
	StageStream   = "stream"
)

// ResolveError is returned once every provider of a stage has failed.
type ResolveError struct {
	Stage    string
	Attempts []error
}

func (e *ResolveError) Error() string {
	msgs := make([]string, 0, len(e.Attempts))
	for _, err := range e.Attempts {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%s resolution failed: %s", e.Stage, strings.Join(msgs, "; "))
}

func (e *ResolveError) Unwrap() []error {
	return e.Attempts
}

// Reason picks a short user-facing explanation from the provider output.
func (e *ResolveError) Reason() string {
	lower := strings.ToLower(e.Error())
	switch {
	case strings.Contains(lower, "private video") ||
		strings.Contains(lower, "video unavailable"):
		return "Video is private or unavailable"
	case strings.Contains(lower, "sign in to confirm") ||
		strings.Contains(lower, "cookies"):
		return "YouTube requires authentication for this video"
	case strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded"):
		return "Timed out while contacting YouTube"
	default:
		return "Failed to fetch video information"
	}
}

// attemptError labels a provider failure with the provider's name.
type attemptError struct {
	provider string
	err      error
}

func (e *attemptError) Error() string {
	return e.provider + ": " + e.err.Error()
}

func (e *attemptError) Unwrap() error {
	return e.err
}

var errEmptyStream = errors.New("empty stream URL")

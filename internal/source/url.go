package source

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidURL = errors.New("invalid YouTube URL")

var youtubeURLRe = regexp.MustCompile(
	`^(https?://)?(www\.)?(youtube\.com/(watch\?v=|shorts/|embed/|live/)|youtu\.be/)[\w\-]{11}`,
)

// ValidateURL accepts the known remote video URL shapes. No network call is made.
func ValidateURL(ref string) error {
	if !youtubeURLRe.MatchString(strings.TrimSpace(ref)) {
		return ErrInvalidURL
	}
	return nil
}

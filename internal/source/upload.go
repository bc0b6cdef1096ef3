package source

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/khotba/khotba_server/internal/pkg/fileutil"
)

var (
	ErrUploadNotFound = errors.New("uploaded file not found, please upload it again")
	ErrInvalidUpload  = errors.New("invalid upload reference")
)

var extRe = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// ValidateUpload resolves a local upload reference to its path on disk.
func ValidateUpload(layout *fileutil.Layout, uploadID, ext string) (string, error) {
	if _, err := uuid.Parse(uploadID); err != nil {
		return "", ErrInvalidUpload
	}
	ext = strings.ToLower(ext)
	if !extRe.MatchString(ext) {
		return "", ErrInvalidUpload
	}
	path := layout.UploadPath(uploadID, ext)
	if !fileutil.Exists(path) {
		return "", ErrUploadNotFound
	}
	return path, nil
}

package errors

import (
	"errors"
	"fmt"
)

// Standard provider errors
var (
	ErrConfiguration       = errors.New("subdivx: username and password must be specified")
	ErrAuthentication      = errors.New("subdivx: authentication failed (invalid nick or password)")
	ErrUnsupportedArchive  = errors.New("subdivx: unsupported archive (neither rar nor zip)")
	ErrNoSubtitleInArchive = errors.New("subdivx: no suitable subtitle file found in archive")

	// Application/Flow specific errors
	ErrNotInitialized    = errors.New("provider: not initialized")
	ErrContentAlreadySet = errors.New("subtitle: content already downloaded")
	ErrInvalidLabel      = errors.New("subtitle: label does not match the expected shape")
	ErrInvalidSubtitle   = errors.New("subtitle: content is not a recognizable subtitle")
	ErrNoSubtitles       = errors.New("processor: no subtitles found")
)

// HTTPStatusError is returned when the site answers with an unexpected status code.
type HTTPStatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// AuthenticationError carries the username that was rejected by the login form.
type AuthenticationError struct {
	Username string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrAuthentication, e.Username)
}

// Unwrap lets errors.Is match ErrAuthentication.
func (e *AuthenticationError) Unwrap() error {
	return ErrAuthentication
}

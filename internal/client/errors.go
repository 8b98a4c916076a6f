package client

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps network failures: refused connections, resets, DNS.
	ErrTransport = errors.New("story client: transport failure")

	// ErrMalformedResponse means a 2xx body was not a JSON object of the
	// expected shape.
	ErrMalformedResponse = errors.New("story client: malformed response")

	// ErrAudioUnavailable means the service has no audio for a story.
	ErrAudioUnavailable = errors.New("story client: audio unavailable")

	// ErrResponseTooLarge means a 2xx body exceeded the client's read limit.
	ErrResponseTooLarge = errors.New("story client: response too large")
)

// maxErrorBody bounds how much of a failed response is kept.
const maxErrorBody = 4 << 10

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("story client: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("story client: unexpected status %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

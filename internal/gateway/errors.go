package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Gateway errors
var (
	ErrTransport       = errors.New("transport error")
	ErrInvalidResponse = errors.New("invalid response")
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsClientError reports a 4xx status
func (e *StatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsNotFound reports whether err is a 404 StatusError
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

func transportError(method, path string, err error) error {
	return fmt.Errorf("%s %s: %w", method, path, errors.Join(ErrTransport, err))
}

func invalidResponse(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrInvalidResponse, err))
}

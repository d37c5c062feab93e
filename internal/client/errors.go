package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNetwork marks transport-level failures: connection refused, DNS, timeout.
// The request never produced an HTTP status.
var ErrNetwork = errors.New("network error")

// StatusError is returned for any non-2xx response. Message carries the
// server-provided failure text when the body had one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a StatusError with the given status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// Message returns the server-provided failure text from err, or err's own
// text when the failure never reached the server.
func Message(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}

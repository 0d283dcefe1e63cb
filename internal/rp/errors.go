package rp

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrParse marks a response whose body could not be interpreted: non-JSON
// content, or a message that does not carry the expected launch id.
var ErrParse = errors.New("rp: unparseable response")

// APIError represents an error status returned by the Report Portal API.
// Callers should prefer the predicate functions (IsNotFound, IsUnauthorized, etc.)
// to inspect errors rather than asserting on this type directly.
type APIError struct {
	operation  string
	statusCode int
	errorCode  int
	message    string
}

func (e *APIError) Error() string {
	if e.errorCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: [%d] %s", e.operation, e.statusCode, e.errorCode, e.message)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.operation, e.statusCode, e.message)
}

func newAPIError(operation string, statusCode int, errorCode int, message string) *APIError {
	return &APIError{
		operation:  operation,
		statusCode: statusCode,
		errorCode:  errorCode,
		message:    message,
	}
}

// parseError wraps ErrParse with the operation and a short excerpt of the body.
func parseError(operation string, body []byte, cause error) error {
	excerpt := string(body)
	if len(excerpt) > 200 {
		excerpt = excerpt[:200] + "..."
	}
	if cause != nil {
		return fmt.Errorf("%s: %w: %v (body: %q)", operation, ErrParse, cause, excerpt)
	}
	return fmt.Errorf("%s: %w (body: %q)", operation, ErrParse, excerpt)
}

// StatusCode returns the HTTP status code from the response.
func (e *APIError) StatusCode() int { return e.statusCode }

// ErrorCode returns the Report Portal application error code.
func (e *APIError) ErrorCode() int { return e.errorCode }

// Message returns the human-readable error message.
func (e *APIError) Message() string { return e.message }

// Operation returns a short description of the API call that failed.
func (e *APIError) Operation() string { return e.operation }

// IsNotFound reports whether err is an API error with HTTP 404 status.
func IsNotFound(err error) bool { return HasStatusCode(err, http.StatusNotFound) }

// IsUnauthorized reports whether err is an API error with HTTP 401 status.
func IsUnauthorized(err error) bool { return HasStatusCode(err, http.StatusUnauthorized) }

// IsParse reports whether err carries ErrParse.
func IsParse(err error) bool { return errors.Is(err, ErrParse) }

// HasStatusCode reports whether err is an API error whose HTTP status code matches.
func HasStatusCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.statusCode == code
}

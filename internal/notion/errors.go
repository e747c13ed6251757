// Package notion is the typed remote client for the hierarchical document
// service the sync engine synchronizes against: pages, child pages, and
// database entries addressed by an opaque remote id. It owns rate limiting,
// retry/backoff, and HTTP error classification; it holds no sync state and
// never imports internal/sync.
package notion

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status classification. Use errors.Is(err,
// notion.ErrNotFound) rather than comparing status codes directly.
var (
	ErrBadRequest  = errors.New("notion: bad request")
	ErrAuth        = errors.New("notion: unauthorized")
	ErrForbidden   = errors.New("notion: forbidden")
	ErrNotFound    = errors.New("notion: not found")
	ErrConflict    = errors.New("notion: conflict")
	ErrThrottled   = errors.New("notion: throttled")
	ErrServerError = errors.New("notion: server error")
	ErrTransport   = errors.New("notion: transport failure")
	ErrMalformed   = errors.New("notion: malformed response")
)

// NotionError wraps a sentinel error with the HTTP status, request id, and
// API error body, mirroring the teacher's GraphError shape.
type NotionError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error
}

func (e *NotionError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("notion: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("notion: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *NotionError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error. Returns nil
// for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrAuth
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether a status code should be retried with backoff.
// Per spec.md §4.3: transient remote (throttling, 5xx, transport) retries;
// other 4xx responses fail immediately.
func isRetryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

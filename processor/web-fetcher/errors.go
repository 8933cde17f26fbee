package webfetcher

import (
	"errors"
	"fmt"
)

// Error types for classifying fetch failures.

// BlockedTargetError reports a URL whose host is private or internal, or
// that could not be parsed. No network call is made for it.
type BlockedTargetError struct {
	URL    string
	Reason error
}

func (e *BlockedTargetError) Error() string {
	return fmt.Sprintf("blocked an attempt to fetch %s: %v; requests to private or internal "+
		"network locations are refused to prevent exfiltration of privileged local data", e.URL, e.Reason)
}

func (e *BlockedTargetError) Unwrap() error {
	return e.Reason
}

// HTTPError reports a non-2xx response status.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("failed to fetch %s: HTTP error: %d", e.URL, e.StatusCode)
}

// FetchError reports a transport failure or a body that could not be
// transformed into the requested format.
type FetchError struct {
	URL string
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s: %s: %v", e.URL, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// InvalidRequestError reports request parameters that cannot be honored.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

// IsBlocked returns true if err is, or wraps, a BlockedTargetError.
func IsBlocked(err error) bool {
	var blocked *BlockedTargetError
	return errors.As(err, &blocked)
}

// outcome classifies err for metrics and logging.
func outcome(err error) string {
	var (
		blocked *BlockedTargetError
		httpErr *HTTPError
		invalid *InvalidRequestError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &blocked):
		return "blocked"
	case errors.As(err, &httpErr):
		return "http_error"
	case errors.As(err, &invalid):
		return "invalid_request"
	default:
		return "fetch_error"
	}
}

package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidRequest = errors.New("invalid chat request")
	ErrAuthentication = errors.New("authentication with model provider failed")
	ErrRateLimited    = errors.New("model provider rate limit exceeded")
	ErrServer         = errors.New("model provider server error")
	ErrAPI            = errors.New("model provider request failed")
	ErrNotSupported   = errors.New("operation not supported by model provider")
)

// APIError carries the upstream status and body of a failed provider call.
type APIError struct {
	Kind       error
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s (status %d)", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Kind }

// NewAPIError classifies an upstream HTTP status.
func NewAPIError(status int, body string) *APIError {
	return &APIError{Kind: classifyStatus(status), StatusCode: status, Body: body}
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthentication
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return ErrServer
	default:
		return ErrAPI
	}
}

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServer)
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

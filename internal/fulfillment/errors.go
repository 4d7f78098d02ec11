package fulfillment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
)

// APIError is a non-2xx response from the backend. It satisfies smithy.APIError so callers
// can classify it the same way they classify AWS SDK errors.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

var _ smithy.APIError = (*APIError)(nil)

func (e *APIError) Error() string {
	return fmt.Sprintf("fulfillment api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) ErrorCode() string {
	if e.Code != "" {
		return e.Code
	}
	return http.StatusText(e.StatusCode)
}

func (e *APIError) ErrorMessage() string { return e.Message }

func (e *APIError) ErrorFault() smithy.ErrorFault {
	if e.StatusCode >= 500 {
		return smithy.FaultServer
	}
	return smithy.FaultClient
}

// StatusCode extracts the HTTP status from err.
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}

// IsRetryable reports whether err is one of the upstream statuses the retry router handles (500, 503).
func IsRetryable(err error) bool {
	code, ok := StatusCode(err)
	return ok && (code == http.StatusInternalServerError || code == http.StatusServiceUnavailable)
}

// IsNotFound reports a 404 from the backend.
func IsNotFound(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusNotFound
}

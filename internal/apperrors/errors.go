package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API callers.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidTransition   = "INVALID_STATUS_TRANSITION"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUpstream            = "UPSTREAM_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError is an error with a code and the HTTP status it maps to.
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail entry and returns the same error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s %q not found", resource, id),
		HTTPStatus: http.StatusNotFound,
	}
}

func Conflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

func Validation(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("cannot move order from %s to %s", from, to),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]interface{}{"from": from, "to": to},
	}
}

// Upstream wraps a failure of an external collaborator. Retryable failures map to 503.
func Upstream(err error, retryable bool) *AppError {
	if retryable {
		return &AppError{
			Code:       CodeUpstreamUnavailable,
			Message:    "fulfillment backend temporarily unavailable",
			HTTPStatus: http.StatusServiceUnavailable,
			Err:        err,
		}
	}
	return &AppError{
		Code:       CodeUpstream,
		Message:    "fulfillment backend request failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func Internal(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "internal error", HTTPStatus: http.StatusInternalServerError, Err: err}
}

// HTTPStatus picks the response status for any error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Code returns the machine-readable code for any error.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Op.Code()
	}
	return CodeInternal
}

// IsNotFound reports whether err is a NOT_FOUND AppError.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeNotFound
}

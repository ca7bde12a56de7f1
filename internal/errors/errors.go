// Package errors defines the service error taxonomy shared by every layer of
// the savings service. Each error carries a stable machine-readable code, the
// HTTP status it maps to and a human-readable message.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable, machine-readable error kind returned to clients.
type ErrorCode string

const (
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeAuthentication ErrorCode = "AUTHENTICATION_ERROR"
	CodeAuthorization  ErrorCode = "AUTHORIZATION_ERROR"
	CodeConflict       ErrorCode = "CONFLICT"
	CodeRateLimited    ErrorCode = "RATE_LIMITED"
	CodeUpstream       ErrorCode = "UPSTREAM_ERROR"
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// ServiceError is an error with an attached HTTP mapping.
type ServiceError struct {
	Code       ErrorCode              `json:"kind"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error with an extra detail entry.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	clone := *e
	clone.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

// Is matches on the error code so callers can test with a sentinel kind.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

func newError(code ErrorCode, status int, message string, err error) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Err:        err,
	}
}

// Validation reports malformed or missing input.
func Validation(format string, args ...interface{}) *ServiceError {
	return newError(CodeValidation, http.StatusBadRequest, fmt.Sprintf(format, args...), nil)
}

// NotFound reports an account or record that does not exist.
func NotFound(resource, id string) *ServiceError {
	e := newError(CodeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource), nil)
	if id != "" {
		e = e.WithDetails("id", id)
	}
	return e
}

// Unauthorized reports a missing, invalid or expired credential.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "authentication required"
	}
	return newError(CodeAuthentication, http.StatusUnauthorized, message, nil)
}

// InvalidSignature reports a signature that failed verification.
func InvalidSignature(err error) *ServiceError {
	return newError(CodeAuthentication, http.StatusUnauthorized, "invalid wallet signature", err)
}

// Forbidden reports an authenticated wallet acting on another wallet's data.
func Forbidden(message string) *ServiceError {
	if message == "" {
		message = "access denied"
	}
	return newError(CodeAuthorization, http.StatusForbidden, message, nil)
}

// Conflict reports a violated state precondition.
func Conflict(format string, args ...interface{}) *ServiceError {
	return newError(CodeConflict, http.StatusBadRequest, fmt.Sprintf(format, args...), nil)
}

// RateLimitExceeded reports a throttled caller.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return newError(CodeRateLimited, http.StatusTooManyRequests, "rate limit exceeded", nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// RateLimited reports a domain-level cooldown or cap.
func RateLimited(message string, retryAfterSeconds int64) *ServiceError {
	e := newError(CodeRateLimited, http.StatusTooManyRequests, message, nil)
	if retryAfterSeconds > 0 {
		e = e.WithDetails("retry_after_seconds", retryAfterSeconds)
	}
	return e
}

// Upstream reports an unreachable ledger node or cache.
func Upstream(service string, err error) *ServiceError {
	return newError(CodeUpstream, http.StatusServiceUnavailable, fmt.Sprintf("%s unavailable", service), err)
}

// Internal reports an unexpected failure.
func Internal(message string, err error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, message, err)
}

// GetServiceError extracts a ServiceError from an error chain.
func GetServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == code
}

// Wrap returns err as a ServiceError, turning unknown errors into Internal.
func Wrap(err error, message string) *ServiceError {
	if se := GetServiceError(err); se != nil {
		return se
	}
	return Internal(message, err)
}

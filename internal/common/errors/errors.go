// Package errors provides the standardized error taxonomy of the gateway and its HTTP mapping.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidRequestFormat ErrorCode = "INVALID_REQUEST_FORMAT"
	ErrCodeBadRequest           ErrorCode = "BAD_REQUEST"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"

	ErrCodeDuplicateUser ErrorCode = "DUPLICATE_USER"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"

	ErrCodeRemoteAPIError    ErrorCode = "REMOTE_API_ERROR"
	ErrCodeRemoteUnavailable ErrorCode = "REMOTE_UNAVAILABLE"

	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`

	// Fields holds the field→message map of a validation failure.
	Fields map[string]string `json:"fields,omitempty"`

	// RemoteStatus and RemoteBody are set for non-2xx CRM responses.
	RemoteStatus int    `json:"remote_status,omitempty"`
	RemoteBody   string `json:"remote_body,omitempty"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError carries every failing field with its message.
func NewValidationError(fields map[string]string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Validation error",
		Fields:    fields,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestFormatError is returned when the body is empty or not a JSON object.
func NewInvalidRequestFormatError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequestFormat,
		Message:   "Invalid request format",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewBadRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBadRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidCredentialsError does not reveal whether the username or the password was wrong.
func NewInvalidCredentialsError() *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidCredentials,
		Message:   "Invalid username or password",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Unauthorized",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDuplicateUserError(username string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateUser,
		Message:   "User already exists",
		Details:   fmt.Sprintf("username: %s", username),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotFoundError(resource string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "Resource not found",
		Details:   resource,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteAPIError wraps a non-2xx CRM response. 429 and 5xx are marked retryable.
func NewRemoteAPIError(operation string, status int, body string) *StandardError {
	return &StandardError{
		Code:         ErrCodeRemoteAPIError,
		Message:      fmt.Sprintf("CRM request failed: %s", operation),
		Details:      fmt.Sprintf("status %d", status),
		RemoteStatus: status,
		RemoteBody:   body,
		Retryable:    status == http.StatusTooManyRequests || status >= 500,
		Timestamp:    time.Now().UTC(),
	}
}

// NewRemoteUnavailableError wraps a transport failure talking to the CRM.
func NewRemoteUnavailableError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRemoteUnavailable,
		Message:   fmt.Sprintf("CRM unreachable: %s", operation),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewConfigurationError is fatal at startup.
func NewConfigurationError(details string, err error) *StandardError {
	se := &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   "Configuration error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
	if err != nil {
		se.Details = fmt.Sprintf("%s: %v", details, err)
	}
	return se
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Classification
// ==========================

// AsStandardError normalizes any error into a StandardError.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// IsCode reports whether err, or any error it wraps, is a StandardError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// HTTPStatus maps an error to the response status of the gateway.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return StatusForCode(AsStandardError(err).Code)
}

func StatusForCode(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeInvalidRequestFormat:
		return http.StatusUnprocessableEntity
	case ErrCodeBadRequest, ErrCodeRemoteAPIError:
		return http.StatusBadRequest
	case ErrCodeInvalidCredentials, ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeDuplicateUser:
		return http.StatusConflict
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRemoteUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "REQUEST"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CREDENTIALS") || strings.Contains(codeStr, "UNAUTHORIZED"):
		return "AUTH"
	case strings.Contains(codeStr, "DUPLICATE") || strings.Contains(codeStr, "NOT_FOUND"):
		return "USER"
	case strings.Contains(codeStr, "REMOTE"):
		return "CRM"
	case strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIG"
	default:
		return "OTHER"
	}
}

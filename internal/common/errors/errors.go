// Package errors provides the structured error type shared by the HTTP surface and the
// Camunda job worker.
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
	ErrCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrCodePersistenceFailed      ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeSubmissionNotFound     ErrorCode = "SUBMISSION_NOT_FOUND"
	ErrCodeProviderFailed         ErrorCode = "PROVIDER_FAILED"
	ErrCodeProviderTimeout        ErrorCode = "PROVIDER_TIMEOUT"
	ErrCodeRenderFailed           ErrorCode = "RENDER_FAILED"
	ErrCodeReportsDirNotWritable  ErrorCode = "REPORTS_DIR_NOT_WRITABLE"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeTokenNotFound          ErrorCode = "TOKEN_NOT_FOUND"
	ErrCodeTokenExpired           ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid           ErrorCode = "TOKEN_INVALID"
	ErrCodeQueueFull              ErrorCode = "QUEUE_FULL"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError carrying the same code, so sentinels built with New work
// with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches one metadata entry and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// New builds a bare error for a code; handy as an errors.Is target.
func New(code ErrorCode, message string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableErrorCode(code),
		Timestamp: time.Now().UTC(),
	}
}

func wrap(code ErrorCode, message string, err error) *StandardError {
	se := New(code, message)
	if err != nil {
		se.Details = err.Error()
		se.cause = err
	}
	return se
}

// As extracts a StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError reports bad or missing Stage 1 input. Never retried.
func NewValidationError(details string) *StandardError {
	se := New(ErrCodeValidationFailed, "Submission validation failed")
	se.Details = details
	return se
}

// NewPersistenceError is fatal for Stage 1.
func NewPersistenceError(operation string, err error) *StandardError {
	return wrap(ErrCodePersistenceFailed, fmt.Sprintf("Submission store %s failed", operation), err)
}

func NewSubmissionNotFoundError(id string) *StandardError {
	se := New(ErrCodeSubmissionNotFound, "Submission not found")
	se.Details = fmt.Sprintf("submissionId: %s", id)
	return se
}

func NewProviderError(provider string, err error) *StandardError {
	return wrap(ErrCodeProviderFailed, fmt.Sprintf("Provider '%s' request failed", provider), err).
		WithMetadata("provider", provider)
}

func NewProviderTimeoutError(provider string, err error) *StandardError {
	return wrap(ErrCodeProviderTimeout, fmt.Sprintf("Provider '%s' timed out", provider), err).
		WithMetadata("provider", provider)
}

func NewRenderError(err error) *StandardError {
	return wrap(ErrCodeRenderFailed, "Report rendering failed", err)
}

func NewReportsDirNotWritableError(dir string, err error) *StandardError {
	return wrap(ErrCodeReportsDirNotWritable, "Reports directory is not writable", err).
		WithMetadata("dir", dir)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(recipient string, err error) *StandardError {
	return wrap(ErrCodeNotificationSendFailed, "Notification delivery failed", err).
		WithMetadata("recipient", recipient)
}

func NewTokenNotFoundError() *StandardError {
	return New(ErrCodeTokenNotFound, "Download link is invalid or no longer available")
}

func NewTokenExpiredError() *StandardError {
	return New(ErrCodeTokenExpired, "Download link has expired")
}

func NewTokenInvalidError(err error) *StandardError {
	return wrap(ErrCodeTokenInvalid, "Token could not be verified", err)
}

func NewQueueFullError(capacity int) *StandardError {
	se := New(ErrCodeQueueFull, "Stage 2 queue is full")
	se.Details = fmt.Sprintf("capacity: %d", capacity)
	return se
}

func NewInternalError(err error) *StandardError {
	return wrap(ErrCodeInternal, "Unexpected error", err)
}

// ==========================
// 4. Error Conversion
// ==========================

// GetRetryCount returns the recommended retry count for job workers.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePersistenceFailed,
		ErrCodeProviderFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeQueueFull:
		return 3
	case ErrCodeProviderTimeout, ErrCodeRenderFailed:
		return 1
	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// HTTPStatus maps a code to the status written by the HTTP surface.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeTokenInvalid:
		return http.StatusUnauthorized
	case ErrCodeSubmissionNotFound, ErrCodeTokenNotFound:
		return http.StatusNotFound
	case ErrCodeTokenExpired:
		return http.StatusGone
	case ErrCodeQueueFull:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.HasPrefix(codeStr, "PERSISTENCE") || strings.HasPrefix(codeStr, "SUBMISSION"):
		return "STORAGE"
	case strings.HasPrefix(codeStr, "PROVIDER"):
		return "AI"
	case strings.HasPrefix(codeStr, "RENDER") || strings.HasPrefix(codeStr, "REPORTS"):
		return "REPORT"
	case strings.HasPrefix(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.HasPrefix(codeStr, "TOKEN"):
		return "TOKEN"
	case strings.HasPrefix(codeStr, "QUEUE"):
		return "DISPATCH"
	default:
		return "INTERNAL"
	}
}

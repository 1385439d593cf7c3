package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode classifies backend failures.
type ErrorCode string

const (
	ErrCodeAuthFailed            ErrorCode = "AUTH_FAILED"
	ErrCodeRateLimited           ErrorCode = "RATE_LIMITED"
	ErrCodeQuotaExceeded         ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeServiceUnavailable    ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeModelNotFound         ErrorCode = "MODEL_NOT_FOUND"
	ErrCodeNetworkError          ErrorCode = "NETWORK_ERROR"
	ErrCodeInvalidRequest        ErrorCode = "INVALID_REQUEST"
	ErrCodeInvalidResponse       ErrorCode = "INVALID_RESPONSE"
	ErrCodeTimeout               ErrorCode = "TIMEOUT"
	ErrCodeContextWindowExceeded ErrorCode = "CONTEXT_WINDOW_EXCEEDED" // prompt larger than the model accepts
	ErrCodeUnknown               ErrorCode = "UNKNOWN"
)

// ExternalServiceError is returned when a backend call fails. It carries the
// size of the prompt that was being sent so callers can tell oversized
// requests from transport trouble.
type ExternalServiceError struct {
	Code         ErrorCode `json:"code"`
	Provider     string    `json:"provider"`
	Message      string    `json:"message"`
	Status       int       `json:"status,omitempty"`
	PromptTokens int       `json:"prompt_tokens"`
	Retryable    bool      `json:"retryable"`
	Err          error     `json:"-"`
}

func (e *ExternalServiceError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s (prompt tokens: %d)", e.Provider, e.Code, e.Message, e.PromptTokens)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// NewExternalServiceError builds an error for the given backend identity.
func NewExternalServiceError(code ErrorCode, identity, message string, promptTokens int, cause error) *ExternalServiceError {
	return &ExternalServiceError{
		Code:         code,
		Provider:     identity,
		Message:      message,
		PromptTokens: promptTokens,
		Retryable:    retryableCode(code),
		Err:          cause,
	}
}

func retryableCode(code ErrorCode) bool {
	switch code {
	case ErrCodeServiceUnavailable, ErrCodeNetworkError, ErrCodeTimeout:
		return true
	default:
		return false
	}
}

// CodeForStatus maps an HTTP status to an ErrorCode.
func CodeForStatus(status int) ErrorCode {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrCodeAuthFailed
	case status == http.StatusTooManyRequests:
		return ErrCodeRateLimited
	case status == http.StatusPaymentRequired:
		return ErrCodeQuotaExceeded
	case status == http.StatusNotFound:
		return ErrCodeModelNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrCodeTimeout
	case status == http.StatusRequestEntityTooLarge:
		return ErrCodeContextWindowExceeded
	case status >= 500:
		return ErrCodeServiceUnavailable
	case status >= 400:
		return ErrCodeInvalidRequest
	default:
		return ErrCodeUnknown
	}
}

// IsContextWindowExceeded reports whether err means the prompt was too
// large for the model. Untyped errors are matched on their message.
func IsContextWindowExceeded(err error) bool {
	if err == nil {
		return false
	}
	var se *ExternalServiceError
	if errors.As(err, &se) && se.Code == ErrCodeContextWindowExceeded {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "context window") ||
		strings.Contains(msg, "context length exceeded") ||
		strings.Contains(msg, "context_length_exceeded") ||
		strings.Contains(msg, "maximum context length") ||
		strings.Contains(msg, "too many tokens")
}

// IsRetryable reports whether err is a transient backend failure.
func IsRetryable(err error) bool {
	var se *ExternalServiceError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// Package handlers implements the gateway's HTTP endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"distill/internal/cache"
	"distill/internal/provider"
	"distill/internal/summarizer"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
}

// SendJSON writes a JSON response with the given status code.
func SendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// SendError writes an error response with the given status code, error code, and message.
func SendError(w http.ResponseWriter, status int, code, message string) {
	SendJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// Common error codes.
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInternalError  = "INTERNAL_ERROR"
	ErrCodeGatewayTimeout = "GATEWAY_TIMEOUT"
	ErrCodeNoProgress     = "NO_PROGRESS"
	ErrCodeBudgetTooSmall = "BUDGET_TOO_SMALL"
	ErrCodePromptTooShort = "PROMPT_TOO_SHORT"
)

// SendEngineError maps an engine error onto a status and error code.
// Provider failures keep the provider's own code and prompt token count.
func SendEngineError(w http.ResponseWriter, err error) {
	var se *provider.ExternalServiceError
	switch {
	case errors.As(err, &se):
		SendJSON(w, http.StatusBadGateway, ErrorResponse{Error: ErrorDetail{
			Code:         string(se.Code),
			Message:      err.Error(),
			PromptTokens: se.PromptTokens,
		}})
	case errors.Is(err, cache.ErrValidation):
		SendError(w, http.StatusBadRequest, ErrCodePromptTooShort, err.Error())
	case errors.Is(err, summarizer.ErrBudgetTooSmall):
		SendError(w, http.StatusBadRequest, ErrCodeBudgetTooSmall, err.Error())
	case errors.Is(err, summarizer.ErrNoProgress):
		SendError(w, http.StatusUnprocessableEntity, ErrCodeNoProgress, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		SendError(w, http.StatusGatewayTimeout, ErrCodeGatewayTimeout, err.Error())
	default:
		SendError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

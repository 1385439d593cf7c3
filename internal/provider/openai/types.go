// Package openai implements provider.Provider for OpenAI-compatible chat
// completion APIs (api.openai.com, vLLM, llama.cpp server and friends).
package openai

import "time"

// Default configuration values.
const (
	Name            = "openai"
	DefaultEndpoint = "https://api.openai.com"
	DefaultModel    = "gpt-3.5-turbo"
	DefaultTimeout  = 2 * time.Minute

	// APIKeyEnv is consulted when no key is configured.
	APIKeyEnv = "OPENAI_API_KEY"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"` // string on OpenAI, sometimes numeric elsewhere
}

type errorResponse struct {
	Error *apiError `json:"error"`
}

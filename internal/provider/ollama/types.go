// Package ollama implements provider.Provider for a local Ollama server.
package ollama

import "time"

// Default configuration values.
const (
	Name            = "ollama"
	DefaultEndpoint = "http://localhost:11434"
	DefaultModel    = "llama3.2"
	DefaultTimeout  = 5 * time.Minute
)

// chatRequest is the body of POST /api/chat.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatOptions sets num_ctx so the server allocates the window the
// summarizer budgets against.
type chatOptions struct {
	NumCtx int `json:"num_ctx,omitempty"`
}

type chatResponse struct {
	Model     string      `json:"model"`
	CreatedAt string      `json:"created_at"`
	Message   chatMessage `json:"message"`
	Done      bool        `json:"done"`

	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

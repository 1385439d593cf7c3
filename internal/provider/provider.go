// Package provider defines the text-generation capability the engine
// condenses text with, and the registry of concrete backends.
package provider

import (
	"context"
	"fmt"
	"time"

	"distill/internal/tokenizer"
)

// DefaultContextWindow is used when neither the configuration nor the
// known-model table gives a context size.
const DefaultContextWindow = 4096

// Provider is a text-generation backend.
//
// TokenCount must be deterministic for a fixed Identity and MaxTokenCount
// must not change over the life of the value.
type Provider interface {
	// Identity is a stable string naming the backend and model, such as
	// "openai(model=gpt-4)". Cached responses are keyed by it.
	Identity() string

	// Ask sends a single prompt and returns the completion text.
	// Failures are *ExternalServiceError.
	Ask(ctx context.Context, prompt string) (string, error)

	// TokenCount returns the number of tokens text occupies for this model.
	TokenCount(text string) int

	// MaxTokenCount returns the model's total context size.
	MaxTokenCount() int
}

// Config holds the settings shared by all backends.
type Config struct {
	Model    string
	Endpoint string
	APIKey   string
	Timeout  time.Duration

	// ContextWindow overrides MaxTokenCount when > 0.
	ContextWindow int

	// Counter replaces the model tokenizer when set. Leaving it nil loads
	// the tiktoken encoding for Model.
	Counter tokenizer.Counter
}

// FormatIdentity builds the identity string for a backend and model.
func FormatIdentity(backend, model string) string {
	return fmt.Sprintf("%s(model=%s)", backend, model)
}

// ResolveCounter returns cfg.Counter or loads the tokenizer for cfg.Model.
// Load failures are *tokenizer.Error.
func ResolveCounter(cfg Config) (tokenizer.Counter, error) {
	if cfg.Counter != nil {
		return cfg.Counter, nil
	}
	return tokenizer.ForModel(cfg.Model)
}

// ResolveContextWindow picks the configured window, then the known size
// for the model, then DefaultContextWindow.
func ResolveContextWindow(cfg Config) int {
	if cfg.ContextWindow > 0 {
		return cfg.ContextWindow
	}
	if n, ok := tokenizer.ContextWindow(cfg.Model); ok {
		return n
	}
	return DefaultContextWindow
}

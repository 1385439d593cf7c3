// Package providertest provides test doubles for provider.Provider.
package providertest

import (
	"context"
	"strings"
	"sync"

	"distill/internal/provider"
)

// MockProvider is a configurable provider.Provider. Unset funcs fall back to
// word-count tokenization, a 4096-token window and echoing the prompt.
// All methods are safe for concurrent use.
type MockProvider struct {
	Name           string
	AskFunc        func(ctx context.Context, prompt string) (string, error)
	TokenCountFunc func(text string) int
	MaxTokens      int

	mu      sync.Mutex
	prompts []string
}

var _ provider.Provider = (*MockProvider)(nil)

func (m *MockProvider) Identity() string {
	if m.Name == "" {
		return "mock(model=test)"
	}
	return m.Name
}

// Ask records the prompt and delegates to AskFunc.
func (m *MockProvider) Ask(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.AskFunc == nil {
		return prompt, nil
	}
	return m.AskFunc(ctx, prompt)
}

func (m *MockProvider) TokenCount(text string) int {
	if m.TokenCountFunc != nil {
		return m.TokenCountFunc(text)
	}
	return WordCount(text)
}

func (m *MockProvider) MaxTokenCount() int {
	if m.MaxTokens == 0 {
		return 4096
	}
	return m.MaxTokens
}

// Calls returns how many times Ask was invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of every prompt passed to Ask, in order.
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Halve returns an AskFunc that answers with the first half of the words
// following prefix in the prompt.
func Halve(prefix string) func(context.Context, string) (string, error) {
	return func(_ context.Context, prompt string) (string, error) {
		words := strings.Fields(strings.TrimPrefix(prompt, prefix))
		return strings.Join(words[:len(words)/2], " "), nil
	}
}

package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distill/internal/tokenizer"
)

type stubProvider struct {
	cfg Config
}

func (s *stubProvider) Identity() string { return FormatIdentity("stub", s.cfg.Model) }

func (s *stubProvider) Ask(ctx context.Context, prompt string) (string, error) {
	return "ok", nil
}

func (s *stubProvider) TokenCount(text string) int { return len(text) }
func (s *stubProvider) MaxTokenCount() int         { return ResolveContextWindow(s.cfg) }

func TestRegisterAndNew(t *testing.T) {
	Reset()
	defer Reset()

	Register("stub", func(cfg Config) (Provider, error) { return &stubProvider{cfg: cfg}, nil })
	Register("broken", func(cfg Config) (Provider, error) { return nil, errors.New("nope") })

	assert.Equal(t, []string{"broken", "stub"}, List())

	p, err := New("stub", Config{Model: "gpt-4"})
	require.NoError(t, err)
	assert.Equal(t, "stub(model=gpt-4)", p.Identity())
	assert.Equal(t, 8192, p.MaxTokenCount())

	_, err = New("broken", Config{})
	assert.EqualError(t, err, "nope")

	_, err = New("missing", Config{})
	assert.ErrorContains(t, err, `unknown provider "missing"`)
}

func TestResolveContextWindow(t *testing.T) {
	assert.Equal(t, 1000, ResolveContextWindow(Config{Model: "gpt-4", ContextWindow: 1000}))
	assert.Equal(t, 4097, ResolveContextWindow(Config{Model: "gpt-3.5-turbo"}))
	assert.Equal(t, DefaultContextWindow, ResolveContextWindow(Config{Model: "llama3"}))
}

func TestResolveCounter_Override(t *testing.T) {
	c, err := ResolveCounter(Config{Model: "whatever", Counter: tokenizer.Heuristic{}})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count("abcdef"))
}

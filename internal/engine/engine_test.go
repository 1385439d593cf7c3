package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distill/internal/config"
	"distill/internal/counters"
	"distill/internal/provider"
	"distill/internal/provider/providertest"
	"distill/internal/summarizer"
	"distill/internal/transcript"
)

const prompt = "Please summarize the following paragraph for me."

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Cache.Path = filepath.Join(dir, "cache.db")
	cfg.Transcript.Path = filepath.Join(dir, "log.txt")
	cfg.Summarize.Hierarchy = "plain"
	return cfg
}

func TestOpen_PersistentCache(t *testing.T) {
	cfg := testConfig(t)
	mock := &providertest.MockProvider{}

	e, err := Open(cfg, WithProvider(mock))
	require.NoError(t, err)

	_, err = e.Ask(context.Background(), prompt)
	require.NoError(t, err)
	require.NotNil(t, e.AskStore())
	require.NoError(t, e.Close())

	// A fresh engine over the same file answers from the cache.
	e, err = Open(cfg, WithProvider(mock))
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Ask(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls())
	assert.Equal(t, int64(1), e.Counters.Get(counters.AskHit(mock.Identity())))

	log, err := os.ReadFile(cfg.Transcript.Path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(log), "Prompt: "))
	assert.Equal(t, 1, strings.Count(string(log), "(cached)"))
}

func TestOpen_WithoutCache(t *testing.T) {
	cfg := testConfig(t)
	mock := &providertest.MockProvider{}

	e, err := Open(cfg, WithProvider(mock), WithoutCache())
	require.NoError(t, err)
	defer e.Close()

	assert.Nil(t, e.AskStore())
	_, err = os.Stat(cfg.Cache.Path)
	assert.True(t, os.IsNotExist(err))

	for range 2 {
		_, err = e.Ask(context.Background(), prompt)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, mock.Calls())
}

func TestOpen_TranscriptDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcript.Enabled = false

	e, err := Open(cfg, WithProvider(&providertest.MockProvider{}), WithoutCache())
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Ask(context.Background(), prompt)
	require.NoError(t, err)
	_, err = os.Stat(cfg.Transcript.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpen_BadHierarchy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Summarize.Hierarchy = "xml"

	_, err := Open(cfg, WithProvider(&providertest.MockProvider{}), WithoutCache())
	assert.ErrorContains(t, err, "xml")
}

func TestOpen_UnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider.Name = "nope"

	_, err := Open(cfg, WithoutCache())
	assert.ErrorContains(t, err, `unknown provider "nope"`)
}

func TestEngine_Summarize(t *testing.T) {
	cfg := testConfig(t)
	cfg.Summarize.Prompt = "Summarize this text for me please:\n\n"
	var buf bytes.Buffer
	mock := &providertest.MockProvider{AskFunc: providertest.Halve(cfg.Summarize.Prompt)}

	e, err := Open(cfg, WithProvider(mock), WithoutCache(), WithTranscript(transcript.New(&buf, 70)))
	require.NoError(t, err)
	defer e.Close()

	text := strings.Repeat(strings.Repeat("word ", 50)+"\n\n", 4)
	res, err := e.Summarize(context.Background(), summarizer.Request{Text: text, Budget: 100})
	require.NoError(t, err)

	assert.True(t, res.Fits)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 2, res.Asks)
	assert.Contains(t, buf.String(), "Summarizing 200 tokens")
	assert.Equal(t, "ask-mock(model=test): 2, ask-mock(model=test)-miss: 2", e.Counters.String())
}

func TestEngine_Split(t *testing.T) {
	cfg := testConfig(t)
	cfg.Summarize.Prompt = "one two three"
	cfg.Summarize.ResponseReserve = 10
	mock := &providertest.MockProvider{MaxTokens: 17}

	e, err := Open(cfg, WithProvider(mock), WithoutCache())
	require.NoError(t, err)
	defer e.Close()

	text := "a b\n\nc d\n\ne"

	// Derived budget: 17 - 3 - 10 = 4.
	merged, err := e.Split(text, 0, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b\n\nc d\n\n", "e"}, merged)

	split, err := e.Split(text, 0, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b\n\n", "c d\n\n", "e"}, split)

	_, err = e.Split(text, -1, true)
	assert.ErrorIs(t, err, summarizer.ErrBudgetTooSmall)
}

func TestNewProvider_HeuristicTokenizer(t *testing.T) {
	p, err := NewProvider(config.ProviderConfig{Name: "ollama", Model: "llama3", Tokenizer: config.TokenizerHeuristic})
	require.NoError(t, err)

	assert.Equal(t, "ollama(model=llama3)", p.Identity())
	assert.Equal(t, 2, p.TokenCount("abcdef"))
	assert.Equal(t, provider.DefaultContextWindow, p.MaxTokenCount())
}

func TestOpen_HeuristicTokenizer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider.Name = "ollama"
	cfg.Provider.Model = "llama3"
	cfg.Provider.Tokenizer = config.TokenizerHeuristic

	e, err := Open(cfg, WithoutCache())
	require.NoError(t, err)
	defer e.Close()

	segments, err := e.Split(strings.Repeat("abc ", 30), 10, true)
	require.NoError(t, err)
	assert.Greater(t, len(segments), 1)
}

func TestNewProvider_UnknownTokenizer(t *testing.T) {
	_, err := NewProvider(config.ProviderConfig{Name: "ollama", Model: "llama3", Tokenizer: "bpe"})
	assert.ErrorContains(t, err, `unknown tokenizer "bpe"`)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.ProviderConfig{Name: "ollama", Model: "llama3.2", ContextWindow: 2048})
	if err != nil {
		// The tokenizer needs its encoding file; skip when offline.
		t.Skipf("tokenizer unavailable: %v", err)
	}
	assert.Equal(t, "ollama(model=llama3.2)", p.Identity())
	assert.Equal(t, 2048, p.MaxTokenCount())
	assert.Contains(t, provider.List(), "openai")
}

// Package engine wires the provider, ask cache, counters, transcript and
// summarizer into one object with an explicit open/close lifecycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"distill/internal/cache"
	"distill/internal/config"
	"distill/internal/counters"
	"distill/internal/provider"
	"distill/internal/provider/ollama"
	"distill/internal/provider/openai"
	"distill/internal/segment"
	"distill/internal/storage"
	"distill/internal/summarizer"
	"distill/internal/tokenizer"
	"distill/internal/transcript"
)

var registerOnce sync.Once

// RegisterBackends adds the built-in providers to the registry.
func RegisterBackends() {
	registerOnce.Do(func() {
		openai.Register()
		ollama.Register()
	})
}

// Engine holds everything a run needs. Build it with Open and release it
// with Close.
type Engine struct {
	Config     *config.Config
	Provider   provider.Provider
	Counters   *counters.Set
	Cache      *cache.Cache
	Transcript *transcript.Writer
	Summarizer *summarizer.Summarizer
	Logger     zerolog.Logger

	db   *storage.DB
	asks *storage.AskStore
}

type options struct {
	provider   provider.Provider
	noCache    bool
	logger     *zerolog.Logger
	transcript *transcript.Writer
}

// Option configures Open.
type Option func(*options)

// WithProvider uses p instead of building the configured backend.
func WithProvider(p provider.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithoutCache keeps asks in memory for the life of the engine.
func WithoutCache() Option {
	return func(o *options) { o.noCache = true }
}

// WithLogger sets the logger passed to every component.
func WithLogger(l *zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTranscript writes the transcript to w instead of the configured file.
func WithTranscript(w *transcript.Writer) Option {
	return func(o *options) { o.transcript = w }
}

// Open builds an Engine from cfg.
func Open(cfg *config.Config, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		Config:   cfg,
		Counters: counters.New(),
		Logger:   zerolog.Nop(),
	}
	if o.logger != nil {
		e.Logger = *o.logger
	}

	p := o.provider
	if p == nil {
		var err error
		p, err = NewProvider(cfg.Provider)
		if err != nil {
			return nil, err
		}
	}
	e.Provider = p

	store, err := e.openStore(cfg, o.noCache)
	if err != nil {
		return nil, err
	}

	e.Transcript = o.transcript
	if e.Transcript == nil && cfg.Transcript.Enabled {
		path, err := cfg.TranscriptPath()
		if err != nil {
			e.Close()
			return nil, err
		}
		if e.Transcript, err = transcript.Open(path, cfg.Transcript.Width); err != nil {
			e.Close()
			return nil, err
		}
	}

	e.Cache = cache.New(store, e.Counters,
		cache.WithTranscript(e.Transcript),
		cache.WithLogger(e.Logger),
		cache.WithMinPromptLength(cfg.Cache.MinPromptLength),
	)

	scfg, err := summarizer.FromSettings(cfg.Summarize)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.Summarizer = summarizer.New(scfg, e.Provider, e.Cache,
		summarizer.WithLogger(e.Logger),
		summarizer.WithTranscript(e.Transcript),
	)

	e.Logger.Debug().
		Str("identity", e.Provider.Identity()).
		Int("context_window", e.Provider.MaxTokenCount()).
		Bool("persistent_cache", e.db != nil).
		Msg("engine opened")
	return e, nil
}

func (e *Engine) openStore(cfg *config.Config, noCache bool) (cache.Store, error) {
	if noCache || !cfg.Cache.Enabled {
		return cache.NewMemoryStore(), nil
	}
	path, err := cfg.CachePath()
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	e.db = db
	e.asks = storage.NewAskStore(db)
	return e.asks, nil
}

// NewProvider builds the backend named in pc.
func NewProvider(pc config.ProviderConfig) (provider.Provider, error) {
	RegisterBackends()
	cfg := provider.Config{
		Model:         pc.Model,
		Endpoint:      pc.Endpoint,
		APIKey:        pc.APIKey,
		Timeout:       pc.GetTimeout(),
		ContextWindow: pc.ContextWindow,
	}
	switch pc.Tokenizer {
	case "", config.TokenizerTiktoken:
	case config.TokenizerHeuristic:
		cfg.Counter = tokenizer.Heuristic{}
	default:
		return nil, fmt.Errorf("provider %s: unknown tokenizer %q", pc.Name, pc.Tokenizer)
	}

	p, err := provider.New(pc.Name, cfg)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
	}
	return p, nil
}

// Ask sends one prompt through the cache.
func (e *Engine) Ask(ctx context.Context, prompt string) (string, error) {
	return e.Cache.Ask(ctx, e.Provider, prompt)
}

// Summarize runs the condensation loop.
func (e *Engine) Summarize(ctx context.Context, req summarizer.Request) (*summarizer.Result, error) {
	return e.Summarizer.Summarize(ctx, req)
}

// Split cuts text into budget-sized segments, merging adjacent ones when
// merge is set. A zero budget is derived from the configured prompt.
func (e *Engine) Split(text string, budget int, merge bool) ([]string, error) {
	if budget == 0 {
		budget = e.Summarizer.Budget(e.Summarizer.Config().Prompt)
	}
	if budget < 1 {
		return nil, fmt.Errorf("%w: %d", summarizer.ErrBudgetTooSmall, budget)
	}
	if merge {
		return e.Summarizer.Split(text, budget), nil
	}
	return segment.Split(text, e.Summarizer.Config().Hierarchy, budget, e.Provider.TokenCount), nil
}

// AskStore returns the persistent store, or nil when the cache is in memory.
func (e *Engine) AskStore() *storage.AskStore {
	return e.asks
}

// Close flushes the transcript and closes the cache database.
func (e *Engine) Close() error {
	var errs []error
	if e.Transcript != nil {
		errs = append(errs, e.Transcript.Close())
	}
	if e.db != nil {
		errs = append(errs, e.db.Close())
		e.db = nil
	}
	return errors.Join(errs...)
}

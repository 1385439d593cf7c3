package cache

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"distill/internal/counters"
	"distill/internal/provider"
	"distill/internal/transcript"
)

// DefaultMinPromptLength is the longest prompt, in characters, that is
// still rejected. Anything this short is almost certainly a caller bug.
const DefaultMinPromptLength = 25

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("cache: invalid prompt")

// ValidationError rejects a prompt before any backend call.
type ValidationError struct {
	Length int
	Min    int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cache: prompt too short: %d characters, need more than %d", e.Length, e.Min)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Cache fronts a provider with a Store. It counts every ask and writes each
// exchange to the transcript.
type Cache struct {
	store      Store
	counters   *counters.Set
	transcript *transcript.Writer
	log        zerolog.Logger
	minLen     int
}

// Option configures a Cache.
type Option func(*Cache)

// WithTranscript records every exchange to w.
func WithTranscript(w *transcript.Writer) Option {
	return func(c *Cache) { c.transcript = w }
}

// WithLogger sets the logger for cache events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithMinPromptLength overrides DefaultMinPromptLength.
func WithMinPromptLength(n int) Option {
	return func(c *Cache) {
		if n >= 0 {
			c.minLen = n
		}
	}
}

// New builds a Cache over store, counting into set.
func New(store Store, set *counters.Set, opts ...Option) *Cache {
	c := &Cache{
		store:    store,
		counters: set,
		log:      zerolog.Nop(),
		minLen:   DefaultMinPromptLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Counters returns the set the cache increments.
func (c *Cache) Counters() *counters.Set { return c.counters }

// Store returns the backing store.
func (c *Cache) Store() Store { return c.store }

// Ask returns the stored response for (p.Identity(), prompt), or calls the
// provider and stores its answer. Provider failures are returned unchanged
// and nothing is stored for them.
func (c *Cache) Ask(ctx context.Context, p provider.Provider, prompt string) (string, error) {
	if n := utf8.RuneCountInString(prompt); n <= c.minLen {
		return "", &ValidationError{Length: n, Min: c.minLen}
	}

	id := p.Identity()
	key := Key{Identity: id, Prompt: prompt}

	if err := c.transcript.Prompt(prompt); err != nil {
		c.log.Warn().Err(err).Msg("transcript write failed")
	}

	result, hit, err := c.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("cache lookup: %w", err)
	}
	c.counters.Inc(counters.AskTotal(id))

	if hit {
		c.counters.Inc(counters.AskHit(id))
		_ = c.transcript.Cached()
		c.log.Debug().Str("identity", id).Int("prompt_len", len(prompt)).Msg("ask cache hit")
	} else {
		c.counters.Inc(counters.AskMiss(id))
		c.log.Debug().Str("identity", id).Int("prompt_len", len(prompt)).Msg("ask cache miss")

		result, err = p.Ask(ctx, prompt)
		if err != nil {
			return "", err
		}
		if err := c.store.Set(ctx, key, result); err != nil {
			return "", fmt.Errorf("cache store: %w", err)
		}
	}

	if err := c.transcript.Response(result); err != nil {
		c.log.Warn().Err(err).Msg("transcript write failed")
	}
	return result, nil
}

package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"distill/internal/provider"
	"distill/internal/segment"
	"distill/internal/transcript"
)

// partSeparator joins the responses of one round.
const partSeparator = "\n\n"

// Asker issues one ask against a provider. *cache.Cache satisfies it.
type Asker interface {
	Ask(ctx context.Context, p provider.Provider, prompt string) (string, error)
}

// Request describes one summarization run. Zero Budget derives the budget
// from the provider; zero MaxIterations and empty Prompt use the Config.
type Request struct {
	Text          string
	Prompt        string
	Budget        int
	MaxIterations int
}

// Round records one split+ask pass.
type Round struct {
	Parts        int
	InputTokens  int
	OutputTokens int
}

// Result is the outcome of a run. Fits is false when the iteration cap was
// reached before the text came under budget.
type Result struct {
	Text       string
	Iterations int
	Asks       int
	Rounds     []Round
	Tokens     int
	Budget     int
	Fits       bool
}

// Summarizer runs the condensation loop, one ask at a time. It is not safe
// for concurrent use.
type Summarizer struct {
	config     Config
	provider   provider.Provider
	asker      Asker
	log        zerolog.Logger
	transcript *transcript.Writer
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithLogger sets the logger for run events.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Summarizer) { s.log = l }
}

// WithTranscript records a line per run and per round.
func WithTranscript(w *transcript.Writer) Option {
	return func(s *Summarizer) { s.transcript = w }
}

// New creates a Summarizer that asks p through asker.
func New(cfg Config, p provider.Provider, asker Asker, opts ...Option) *Summarizer {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}
	if cfg.Hierarchy == nil {
		cfg.Hierarchy = segment.Markdown()
	}
	s := &Summarizer{
		config:   cfg,
		provider: p,
		asker:    asker,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Summarizer) Config() Config {
	return s.config
}

// Budget derives the per-part token budget for prompt: the context window
// less the prompt itself and the response reserve. The result may be
// below one.
func (s *Summarizer) Budget(prompt string) int {
	return s.provider.MaxTokenCount() - s.provider.TokenCount(prompt) - s.config.ResponseReserve
}

// Split breaks text into budget-sized parts with the configured hierarchy.
func (s *Summarizer) Split(text string, budget int) []string {
	return segment.Pack(text, s.config.Hierarchy, budget, s.provider.TokenCount)
}

// Summarize condenses req.Text until it fits the budget or the iteration cap
// is reached. Hitting the cap is not an error; check Result.Fits.
func (s *Summarizer) Summarize(ctx context.Context, req Request) (*Result, error) {
	if s.provider == nil || s.asker == nil {
		return nil, ErrNoProvider
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = s.config.Prompt
	}
	maxIter := req.MaxIterations
	if maxIter <= 0 {
		maxIter = s.config.MaxIterations
	}
	budget := req.Budget
	if budget == 0 {
		budget = s.Budget(prompt)
	}
	if budget < 1 {
		return nil, fmt.Errorf("%w: %d (context window %d, reserve %d)",
			ErrBudgetTooSmall, budget, s.provider.MaxTokenCount(), s.config.ResponseReserve)
	}

	log := s.log.With().
		Str("run", uuid.NewString()).
		Str("identity", s.provider.Identity()).
		Int("budget", budget).
		Logger()

	count := s.provider.TokenCount
	current := req.Text
	res := &Result{Budget: budget}

	tokens := count(current)
	log.Debug().Int("tokens", tokens).Int("max_iterations", maxIter).Msg("summarize started")
	if tokens > budget {
		_ = s.transcript.Note("Summarizing %d tokens to a budget of %d with %s", tokens, budget, s.provider.Identity())
	}

	for tokens > budget && res.Iterations < maxIter {
		parts := s.Split(current, budget)
		round := Round{Parts: len(parts), InputTokens: tokens}

		responses := make([]string, 0, len(parts))
		for i, part := range parts {
			if n := count(part); n > budget {
				if s.config.TruncateOverflow {
					part = segment.Truncate(part, budget, count)
					log.Warn().Int("part", i).Int("tokens", n).Msg("overflow part truncated")
				} else {
					log.Warn().Int("part", i).Int("tokens", n).Msg("overflow part sent whole")
				}
			}

			resp, err := s.asker.Ask(ctx, s.provider, prompt+part)
			if err != nil {
				log.Error().Err(err).Int("round", res.Iterations+1).Int("part", i).Msg("ask failed")
				return nil, fmt.Errorf("%w: round %d part %d: %w", ErrSummaryFailed, res.Iterations+1, i+1, err)
			}
			res.Asks++
			responses = append(responses, resp)
		}

		current = strings.Join(responses, partSeparator)
		res.Iterations++
		round.OutputTokens = count(current)
		res.Rounds = append(res.Rounds, round)
		tokens = round.OutputTokens

		log.Info().
			Int("round", res.Iterations).
			Int("parts", round.Parts).
			Int("tokens_in", round.InputTokens).
			Int("tokens_out", round.OutputTokens).
			Msg("summarize round complete")

		if round.OutputTokens >= round.InputTokens {
			log.Warn().Int("round", res.Iterations).Msg("round did not shrink the text")
			if s.config.RequireShrink {
				return nil, &NoProgressError{Iteration: res.Iterations, Round: round}
			}
		}
	}

	res.Text = current
	res.Tokens = tokens
	res.Fits = tokens <= budget
	if !res.Fits {
		log.Warn().Int("tokens", tokens).Int("iterations", res.Iterations).Msg("iteration cap reached, text still over budget")
	}
	return res, nil
}

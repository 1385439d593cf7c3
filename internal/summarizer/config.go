package summarizer

import (
	"fmt"

	"distill/internal/config"
	"distill/internal/segment"
)

// Config holds the knobs for a Summarizer.
type Config struct {
	// MaxIterations caps the number of split+ask rounds per run.
	// Default: 10
	MaxIterations int

	// ResponseReserve is subtracted from the context window when the budget
	// is derived, leaving room for the answer.
	// Default: 512
	ResponseReserve int

	// TruncateOverflow cuts a part that still exceeds the budget after the
	// hierarchy is exhausted before it is sent.
	// Default: true
	TruncateOverflow bool

	// RequireShrink fails a run with ErrNoProgress when a round does not
	// reduce the token count.
	RequireShrink bool

	// Hierarchy is the rule set used to split oversized text.
	// Default: segment.Markdown()
	Hierarchy segment.Hierarchy

	// Prompt is used when a Request carries none.
	Prompt string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		MaxIterations:    10,
		ResponseReserve:  512,
		TruncateOverflow: true,
		Hierarchy:        segment.Markdown(),
		Prompt:           config.DefaultPrompt,
	}
}

// FromSettings converts the file/env configuration section.
func FromSettings(s config.SummarizeConfig) (Config, error) {
	cfg := DefaultConfig()
	if s.MaxIterations > 0 {
		cfg.MaxIterations = s.MaxIterations
	}
	if s.ResponseReserve >= 0 {
		cfg.ResponseReserve = s.ResponseReserve
	}
	cfg.TruncateOverflow = s.TruncateOverflow
	cfg.RequireShrink = s.RequireShrink
	if s.Prompt != "" {
		cfg.Prompt = s.Prompt
	}
	h, err := segment.ByName(s.Hierarchy)
	if err != nil {
		return Config{}, fmt.Errorf("summarizer: %w", err)
	}
	cfg.Hierarchy = h
	return cfg, nil
}

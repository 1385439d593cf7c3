// Package summarizer condenses text that exceeds a token budget by asking a
// provider to summarize budget-sized parts, round after round.
package summarizer

import (
	"errors"
	"fmt"
)

// Summarizer errors.
var (
	// ErrSummaryFailed wraps any failure of an ask issued during a run.
	ErrSummaryFailed = errors.New("summarizer: summary generation failed")

	// ErrNoProvider indicates that no provider is configured.
	ErrNoProvider = errors.New("summarizer: provider not configured")

	// ErrBudgetTooSmall indicates a budget below one token, usually because
	// the prompt and response reserve use up the whole context window.
	ErrBudgetTooSmall = errors.New("summarizer: token budget too small")

	// ErrNoProgress is matched by *NoProgressError.
	ErrNoProgress = errors.New("summarizer: round did not shrink the text")
)

// NoProgressError reports the round that failed to shrink its input.
type NoProgressError struct {
	Iteration int
	Round
}

func (e *NoProgressError) Error() string {
	return fmt.Sprintf("summarizer: round %d did not shrink the text (%d -> %d tokens)",
		e.Iteration, e.InputTokens, e.OutputTokens)
}

func (e *NoProgressError) Is(target error) bool { return target == ErrNoProgress }

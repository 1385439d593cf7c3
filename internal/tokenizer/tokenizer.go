// Package tokenizer counts tokens the way OpenAI-style models do.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used for models tiktoken does not know about.
const DefaultEncoding = "cl100k_base"

// ErrEncodingUnavailable is matched by every *Error.
var ErrEncodingUnavailable = errors.New("tokenizer: encoding unavailable")

// Error reports a model or encoding whose tokenizer could not be loaded.
type Error struct {
	Model    string
	Encoding string
	Err      error
}

func (e *Error) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("tokenizer: model %s (encoding %s): %v", e.Model, e.Encoding, e.Err)
	}
	return fmt.Sprintf("tokenizer: encoding %s: %v", e.Encoding, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrEncodingUnavailable }

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// Tokenizer wraps a loaded tiktoken encoding. Loading happens up front so
// Count never fails.
type Tokenizer struct {
	enc      *tiktoken.Tiktoken
	encoding string
}

// New loads the named encoding.
func New(encoding string) (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, &Error{Encoding: encoding, Err: err}
	}
	return &Tokenizer{enc: enc, encoding: encoding}, nil
}

// ForModel loads the encoding tiktoken associates with model, falling back
// to DefaultEncoding for unknown model names.
func ForModel(model string) (*Tokenizer, error) {
	encoding := DefaultEncoding
	if name, ok := tiktoken.MODEL_TO_ENCODING[model]; ok {
		encoding = name
	} else {
		for prefix, name := range tiktoken.MODEL_PREFIX_TO_ENCODING {
			if strings.HasPrefix(model, prefix) {
				encoding = name
				break
			}
		}
	}
	t, err := New(encoding)
	if err != nil {
		var te *Error
		if errors.As(err, &te) {
			te.Model = model
		}
		return nil, err
	}
	return t, nil
}

// Encoding returns the encoding name.
func (t *Tokenizer) Encoding() string { return t.encoding }

// Count returns the number of tokens in text. Special-token sequences such
// as "<|endoftext|>" are counted rather than rejected.
func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, []string{"all"}, nil))
}

// Heuristic estimates roughly three characters per token. It needs no
// encoding data, which makes it usable offline.
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 2) / 3
}

// Package segment splits text along structural boundaries and packs the
// pieces back together under a token budget. Everything here is pure: no
// I/O, no shared state, and concatenating any result reproduces the input.
package segment

import (
	"fmt"
	"regexp"
)

// Rule is one kind of boundary. Pattern must have two capture groups: the
// text matched by group 1 stays with the piece before the boundary and the
// text matched by group 2 starts the piece after it.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// NewRule compiles pattern and checks it has exactly two groups.
func NewRule(name, pattern string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("segment: rule %s: %w", name, err)
	}
	if re.NumSubexp() != 2 {
		return Rule{}, fmt.Errorf("segment: rule %s: want 2 capture groups, got %d", name, re.NumSubexp())
	}
	return Rule{Name: name, Pattern: re}, nil
}

// MustRule is NewRule that panics, for package-level rule tables.
func MustRule(name, pattern string) Rule {
	r, err := NewRule(name, pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// Cut splits text at every boundary the rule finds. Cuts that would produce
// an empty piece are skipped, so every returned piece is non-empty.
func (r Rule) Cut(text string) []string {
	if text == "" {
		return nil
	}

	var pieces []string
	start := 0
	for _, m := range r.Pattern.FindAllStringSubmatchIndex(text, -1) {
		cut := m[3]
		if m[2] < 0 {
			cut = m[0]
		}
		if cut <= start || cut >= len(text) {
			continue
		}
		pieces = append(pieces, text[start:cut])
		start = cut
	}
	return append(pieces, text[start:])
}

// Built-in rules, coarse to fine.
var (
	Sections   = MustRule("sections", `(\n)(#{1,6} )`)
	Paragraphs = MustRule("paragraphs", `(\n[ \t]*\n\s*)()`)
	Lines      = MustRule("lines", `(\n)()`)
	Sentences  = MustRule("sentences", `([.!?]+[ \t]+)()`)
	Whitespace = MustRule("whitespace", `(\s+)()`)
)

// Hierarchy is an ordered list of rules, coarsest first.
type Hierarchy []Rule

// Markdown splits on headers before falling back to paragraphs, lines,
// sentences and finally single words.
func Markdown() Hierarchy {
	return Hierarchy{Sections, Paragraphs, Lines, Sentences, Whitespace}
}

// Plain is for unstructured text.
func Plain() Hierarchy {
	return Hierarchy{Paragraphs, Lines, Whitespace}
}

// ByName resolves a hierarchy name from configuration.
func ByName(name string) (Hierarchy, error) {
	switch name {
	case "", "markdown":
		return Markdown(), nil
	case "plain":
		return Plain(), nil
	default:
		return nil, fmt.Errorf("segment: unknown hierarchy %q", name)
	}
}

// Names lists the rule names, for logging.
func (h Hierarchy) Names() []string {
	names := make([]string, len(h))
	for i, r := range h {
		names[i] = r.Name
	}
	return names
}

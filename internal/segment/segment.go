package segment

import "strings"

// Counter returns the token count of a piece of text.
type Counter func(text string) int

// Split breaks text into pieces of at most budget tokens. It cuts with the
// first rule of h, keeps pieces that fit and recurses into the rest with the
// remaining rules. A piece that still does not fit once the rules run out is
// returned as is.
func Split(text string, h Hierarchy, budget int, count Counter) []string {
	if text == "" {
		return nil
	}
	if len(h) == 0 {
		return []string{text}
	}

	var out []string
	for _, piece := range h[0].Cut(text) {
		if count(piece) <= budget {
			out = append(out, piece)
			continue
		}
		out = append(out, Split(piece, h[1:], budget, count)...)
	}
	return out
}

// Merge joins adjacent segments greedily, left to right, as long as the
// combined text stays within budget. The combined string is counted rather
// than summing per-segment counts, since tokenizers are not additive across
// a join.
func Merge(segments []string, budget int, count Counter) []string {
	var out []string
	acc := ""
	for _, seg := range segments {
		if acc == "" {
			acc = seg
			continue
		}
		if seg == "" {
			continue
		}
		if joined := acc + seg; count(joined) <= budget {
			acc = joined
			continue
		}
		out = append(out, acc)
		acc = seg
	}
	if acc != "" {
		out = append(out, acc)
	}
	return out
}

// Pack is Split followed by Merge.
func Pack(text string, h Hierarchy, budget int, count Counter) []string {
	return Merge(Split(text, h, budget, count), budget, count)
}

// Truncate shortens text until it fits budget, cutting by the fraction of
// the budget the text overshoots. It is a last resort for overflow leaves.
func Truncate(text string, budget int, count Counter) string {
	if budget < 1 {
		return ""
	}
	for n := count(text); n > budget && text != ""; n = count(text) {
		keep := len(text) * budget / n
		if keep >= len(text) {
			keep = len(text) - 1
		}
		text = strings.ToValidUTF8(text[:keep], "")
	}
	return text
}

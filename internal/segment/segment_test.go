package segment

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(s string) int { return len(strings.Fields(s)) }

func chars(s string) int { return utf8.RuneCountInString(s) }

func paragraphs(n, size int) string {
	paras := make([]string, n)
	for i := range paras {
		ws := make([]string, size)
		for j := range ws {
			ws[j] = fmt.Sprintf("p%dw%d", i, j)
		}
		paras[i] = strings.Join(ws, " ")
	}
	return strings.Join(paras, "\n\n")
}

const doc = `# Title

Intro paragraph. It has two sentences!

## Part one
Line one of part one.
Line two of part one.

## Part two

Closing words here.`

func TestRule_Cut(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		in   string
		want []string
	}{
		{"empty", Lines, "", nil},
		{"no match", Lines, "single line", []string{"single line"}},
		{"lines keep newline", Lines, "a\nb\nc", []string{"a\n", "b\n", "c"}},
		{"trailing newline", Lines, "a\nb\n", []string{"a\n", "b\n"}},
		{"leading newline", Lines, "\na", []string{"\n", "a"}},
		{"paragraphs", Paragraphs, "one\n\n\ntwo\n \nthree", []string{"one\n\n\n", "two\n \n", "three"}},
		{"sections", Sections, "intro\n# A\ntext\n## B", []string{"intro\n", "# A\ntext\n", "## B"}},
		{"header at start", Sections, "# A\nbody", []string{"# A\nbody"}},
		{"sentences", Sentences, "One. Two?! Three", []string{"One. ", "Two?! ", "Three"}},
		{"whitespace", Whitespace, "a  b\tc", []string{"a  ", "b\t", "c"}},
		{"whitespace only", Whitespace, "   ", []string{"   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rule.Cut(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, strings.Join(got, ""))
		})
	}
}

func TestNewRule(t *testing.T) {
	_, err := NewRule("one group", `(\n)`)
	assert.ErrorContains(t, err, "want 2 capture groups")

	_, err = NewRule("bad", `(\n`)
	assert.Error(t, err)

	r, err := NewRule("commas", `(,)( )`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a,", " b"}, r.Cut("a, b"))
}

func TestByName(t *testing.T) {
	h, err := ByName("markdown")
	require.NoError(t, err)
	assert.Equal(t, []string{"sections", "paragraphs", "lines", "sentences", "whitespace"}, h.Names())

	h, err = ByName("")
	require.NoError(t, err)
	assert.Len(t, h, 5)

	h, err = ByName("plain")
	require.NoError(t, err)
	assert.Equal(t, []string{"paragraphs", "lines", "whitespace"}, h.Names())

	_, err = ByName("xml")
	assert.Error(t, err)
}

func TestSplit_Lossless(t *testing.T) {
	inputs := []string{
		"",
		"x",
		doc,
		paragraphs(7, 13),
		"trailing whitespace   \n\n\n",
		"\n\n\nleading blank lines",
		"unicode: héllo wörld. ünïcödé!\n\nnext ☃ paragraph",
	}
	for _, budget := range []int{1, 2, 3, 5, 10, 1000} {
		for i, in := range inputs {
			t.Run(fmt.Sprintf("budget%d/input%d", budget, i), func(t *testing.T) {
				got := Split(in, Markdown(), budget, words)
				assert.Equal(t, in, strings.Join(got, ""))
				for _, seg := range got {
					assert.NotEmpty(t, seg)
				}
			})
		}
	}
}

func TestSplit_RespectsBudget(t *testing.T) {
	for _, budget := range []int{1, 4, 9, 30} {
		for _, seg := range Split(doc, Markdown(), budget, words) {
			assert.LessOrEqual(t, words(seg), budget, "%q", seg)
		}
	}
}

func TestSplit_FitsUnchanged(t *testing.T) {
	assert.Equal(t, []string{"short text"}, Split("short text", Plain(), 10, words))
}

func TestSplit_OnlyRecursesIntoOversizedPieces(t *testing.T) {
	in := "a b\n\nc d e f g\n\nh"
	got := Split(in, Plain(), 2, words)
	assert.Equal(t, []string{"a b\n\n", "c ", "d ", "e ", "f ", "g\n", "\n", "h"}, got)
}

func TestSplit_EmptyHierarchy(t *testing.T) {
	assert.Equal(t, []string{"too many words here"}, Split("too many words here", nil, 1, words))
}

func TestSplit_OverflowLeaf(t *testing.T) {
	word := strings.Repeat("x", 50)
	got := Split(word, Markdown(), 10, chars)
	require.Len(t, got, 1)
	assert.Equal(t, word, got[0])
	assert.Greater(t, chars(got[0]), 10)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name   string
		in     []string
		budget int
		want   []string
	}{
		{"nil", nil, 5, nil},
		{"all fit", []string{"a ", "b ", "c"}, 5, []string{"a b c"}},
		{"flush on overflow", []string{"a b ", "c d ", "e"}, 4, []string{"a b c d ", "e"}},
		{"exact budget", []string{"a b ", "c d "}, 4, []string{"a b c d "}},
		{"empty segments absorbed", []string{"", "a ", "", "b"}, 1, []string{"a ", "b"}},
		{"overflow leaf passes through", []string{"a ", "b c d e f ", "g"}, 2, []string{"a ", "b c d e f ", "g"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.in, tt.budget, words)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.Join(tt.in, ""), strings.Join(got, ""))
			assert.LessOrEqual(t, len(got), len(tt.in))
		})
	}
}

func TestMerge_CountsCombinedString(t *testing.T) {
	// "ab" + "cd" joins into a single word, so the merged count is lower
	// than the sum of the parts.
	got := Merge([]string{"x ab", "cd y"}, 3, words)
	assert.Equal(t, []string{"x abcd y"}, got)
}

func TestPack(t *testing.T) {
	text := paragraphs(100, 100)
	parts := Pack(text, Plain(), 4000, words)

	require.Len(t, parts, 3)
	assert.Equal(t, 4000, words(parts[0]))
	assert.Equal(t, 4000, words(parts[1]))
	assert.Equal(t, 2000, words(parts[2]))
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10, chars))
	assert.Equal(t, strings.Repeat("x", 10), Truncate(strings.Repeat("x", 50), 10, chars))
	assert.Equal(t, "", Truncate("anything", 0, chars))

	got := Truncate("ééééééééé", 4, chars)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, chars(got), 4)
}

// Package transcript appends a human-readable record of every prompt sent
// and response received. The file is never read back by distill.
package transcript

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
)

// DefaultWidth is the column limit for wrapped entries.
const DefaultWidth = 70

const indent = "    "

// Writer appends wrapped entries. A nil *Writer discards everything.
type Writer struct {
	mu    sync.Mutex
	w     *bufio.Writer
	c     io.Closer
	width int
}

// Open opens path for appending, creating it and its directory if needed.
func Open(path string, width int) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("transcript: create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("transcript: open %s: %w", path, err)
	}
	return New(f, width), nil
}

// New writes to w. If w is an io.Closer, Close closes it.
func New(w io.Writer, width int) *Writer {
	if width <= len(indent) {
		width = DefaultWidth
	}
	t := &Writer{w: bufio.NewWriter(w), width: width}
	if c, ok := w.(io.Closer); ok {
		t.c = c
	}
	return t
}

// Prompt records an outgoing prompt.
func (t *Writer) Prompt(text string) error {
	return t.entry("Prompt: " + text)
}

// Response records a response.
func (t *Writer) Response(text string) error {
	return t.entry("Response: " + text)
}

// Cached marks the preceding prompt as answered from the cache.
func (t *Writer) Cached() error {
	return t.write(indent + "(cached)\n")
}

// Note records a free-form line, such as the start of a run.
func (t *Writer) Note(format string, args ...any) error {
	return t.entry(fmt.Sprintf(format, args...))
}

// entry collapses whitespace and wraps to the column limit. Continuation
// lines are indented and the indent counts toward the limit.
func (t *Writer) entry(text string) error {
	if t == nil {
		return nil
	}
	flat := strings.Join(strings.Fields(text), " ")
	head, rest, _ := strings.Cut(ansi.Wrap(flat, t.width, ""), "\n")

	lines := []string{strings.TrimSpace(head)}
	if rest = strings.Join(strings.Fields(rest), " "); rest != "" {
		for _, line := range strings.Split(ansi.Wrap(rest, t.width-len(indent), ""), "\n") {
			lines = append(lines, indent+strings.TrimSpace(line))
		}
	}
	return t.write(strings.Join(lines, "\n") + "\n")
}

func (t *Writer) write(s string) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.WriteString(s); err != nil {
		return err
	}
	return t.w.Flush()
}

// Close flushes and closes the underlying file.
func (t *Writer) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.w.Flush()
	if t.c != nil {
		if cerr := t.c.Close(); err == nil {
			err = cerr
		}
		t.c = nil
	}
	return err
}

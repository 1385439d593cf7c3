// Package counters keeps named, increment-only event counts for one process.
package counters

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Set is a name to count map. The zero value is ready to use and safe for
// concurrent use.
type Set struct {
	mu     sync.Mutex
	counts map[string]int64
}

// New returns an empty set.
func New() *Set {
	return &Set{}
}

// Inc adds one to name.
func (s *Set) Inc(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = make(map[string]int64)
	}
	s.counts[name]++
}

// Get returns the count for name, zero if never incremented.
func (s *Set) Get(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[name]
}

// Snapshot returns a copy of all counts.
func (s *Set) Snapshot() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// String renders "name: n, name: n" sorted by name.
func (s *Set) String() string {
	snap := s.Snapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %d", name, snap[name])
	}
	return strings.Join(parts, ", ")
}

// Ask counter names for a provider identity.
func AskTotal(identity string) string { return "ask-" + identity }
func AskHit(identity string) string   { return "ask-" + identity + "-hit" }
func AskMiss(identity string) string  { return "ask-" + identity + "-miss" }

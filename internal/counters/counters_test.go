package counters

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_IncGet(t *testing.T) {
	var s Set
	assert.Zero(t, s.Get("missing"))

	s.Inc("a")
	s.Inc("a")
	s.Inc("b")

	assert.Equal(t, int64(2), s.Get("a"))
	assert.Equal(t, int64(1), s.Get("b"))
	assert.Equal(t, map[string]int64{"a": 2, "b": 1}, s.Snapshot())
}

func TestSet_SnapshotIsCopy(t *testing.T) {
	s := New()
	s.Inc("x")
	snap := s.Snapshot()
	snap["x"] = 100
	assert.Equal(t, int64(1), s.Get("x"))
}

func TestSet_String(t *testing.T) {
	s := New()
	assert.Equal(t, "", s.String())

	id := "openai(model=gpt-4)"
	s.Inc(AskTotal(id))
	s.Inc(AskTotal(id))
	s.Inc(AskMiss(id))
	s.Inc(AskHit(id))

	assert.Equal(t,
		"ask-openai(model=gpt-4): 2, ask-openai(model=gpt-4)-hit: 1, ask-openai(model=gpt-4)-miss: 1",
		s.String())
}

func TestSet_Concurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.Inc("n")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), s.Get("n"))
}

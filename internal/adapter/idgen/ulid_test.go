package idgen

import (
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULIDGenerator_Parseable(t *testing.T) {
	id := NewULIDGenerator().Generate()

	parsed, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, parsed.String())
}

func TestULIDGenerator_MonotonicWithinMillisecond(t *testing.T) {
	g := NewULIDGenerator()
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g.now = func() time.Time { return frozen }

	prev := g.Generate()
	for range 100 {
		next := g.Generate()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestULIDGenerator_ConcurrentUnique(t *testing.T) {
	g := NewULIDGenerator()

	const n = 500
	ids := make(chan string, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			ids <- g.Generate()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, n)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

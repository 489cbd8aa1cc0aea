package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/resumable/internal/store"
)

var _ store.Clock = (*DeterministicClock)(nil)

func TestDeterministicClock_Sequence(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_Concurrent(t *testing.T) {
	clock := NewDeterministicClock()
	const workers, calls = 16, 250

	seen := make([][]int64, workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range calls {
				seen[w] = append(seen[w], clock.Next())
			}
		}()
	}
	wg.Wait()

	unique := make(map[int64]bool)
	for _, vs := range seen {
		for i, v := range vs {
			if i > 0 {
				assert.Greater(t, v, vs[i-1], "seq must grow within a goroutine")
			}
			unique[v] = true
		}
	}
	assert.Len(t, unique, workers*calls)
	assert.Equal(t, int64(workers*calls), clock.Current())
}

package hub_test

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/blahchat/internal/hub"
)

func TestIDAllocatorStartsAtOneAndIncreases(t *testing.T) {
	var a hub.IDAllocator

	prev := a.Next()
	assert.Equal(t, hub.ConnectionID(1), prev)
	for i := 0; i < 100; i++ {
		next := a.Next()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestIDAllocatorConcurrentUnique(t *testing.T) {
	var a hub.IDAllocator
	const workers, perWorker = 8, 500

	results := make([][]hub.ConnectionID, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ids := make([]hub.ConnectionID, perWorker)
			for i := range ids {
				ids[i] = a.Next()
			}
			results[w] = ids
		}(w)
	}
	wg.Wait()

	seen := make(map[hub.ConnectionID]bool, workers*perWorker)
	for _, ids := range results {
		require.True(t, sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i] < ids[j] }))
		for _, id := range ids {
			require.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, hub.ConnectionID(workers*perWorker+1), a.Next())
}

func TestConnectionIDString(t *testing.T) {
	assert.Equal(t, "42", hub.ConnectionID(42).String())
}

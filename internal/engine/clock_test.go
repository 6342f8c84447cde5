package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsAt(t *testing.T) {
	assert.Equal(t, int64(0), NewClock().Current())
	assert.Equal(t, int64(40), NewClockAt(40).Current())
}

func TestClock_Next(t *testing.T) {
	c := NewClockAt(10)
	assert.Equal(t, int64(11), c.Next())
	assert.Equal(t, int64(12), c.Next())
	assert.Equal(t, int64(12), c.Current())
}

func TestClock_ConcurrentNextIsUnique(t *testing.T) {
	c := NewClock()
	const workers, per = 8, 250

	var mu sync.Mutex
	seen := make(map[int64]bool, workers*per)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				seq := c.Next()
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*per)
	assert.Equal(t, int64(workers*per), c.Current())
}

func TestClock_SharedWithChildren(t *testing.T) {
	root := New(WithName("db"))
	child := New(WithName("users"), WithParent(root))
	own := New(WithName("detached"), WithParent(root), WithClock(NewClockAt(100)))

	assert.Same(t, root.Clock(), child.Clock())
	assert.NotSame(t, root.Clock(), own.Clock())
}

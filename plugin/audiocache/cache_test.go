package audiocache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mb = 1 << 20

// newTestCache returns a cache whose clock advances one millisecond per call.
func newTestCache(bs ByteStore) *Cache {
	c := New(bs)
	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
	return c
}

func TestCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(NewMemoryStore())

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	require.True(t, c.Put(ctx, "k", []byte("audio"), 50))
	blob, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("audio"), blob)
	assert.True(t, c.Contains(ctx, "k"))

	require.True(t, c.Put(ctx, "k", []byte("newer"), 50))
	blob, _ = c.Get(ctx, "k")
	assert.Equal(t, []byte("newer"), blob)
	assert.Equal(t, Stats{Entries: 1, Bytes: 5}, c.Stats(ctx))
}

func TestCache_GetTouchesContainsDoesNot(t *testing.T) {
	ctx := context.Background()
	bs := NewMemoryStore()
	c := newTestCache(bs)

	require.True(t, c.Put(ctx, "a", []byte{1}, 50))
	require.True(t, c.Put(ctx, "b", []byte{1}, 50))

	assert.True(t, c.Contains(ctx, "a"))
	list, err := bs.ListEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", list[0].Key)

	_, ok := c.Get(ctx, "a")
	require.True(t, ok)
	list, err = bs.ListEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", list[0].Key)
	assert.Equal(t, "a", list[1].Key)
}

func TestCache_EvictsOldestToEightyPercent(t *testing.T) {
	ctx := context.Background()
	bs := NewMemoryStore()
	c := newTestCache(bs)

	// Ten 0.25 MB clips fill 2.5 MB; with a 3 MB budget nothing is evicted.
	clip := make([]byte, mb/4)
	for i := 0; i < 10; i++ {
		require.True(t, c.Put(ctx, fmt.Sprintf("k%d", i), clip, 3))
	}
	assert.Equal(t, 10, c.Stats(ctx).Entries)

	// Reading k0 makes it the most recent entry.
	_, ok := c.Get(ctx, "k0")
	require.True(t, ok)

	// Exactly at the budget nothing is evicted.
	require.True(t, c.Put(ctx, "k10", clip, 3))
	require.True(t, c.Put(ctx, "k11", clip, 3))
	assert.Equal(t, 12, c.Stats(ctx).Entries)

	// One more clip crosses 3 MB; eviction must reach 2.4 MB.
	require.True(t, c.Put(ctx, "k12", clip, 3))

	stats := c.Stats(ctx)
	assert.LessOrEqual(t, float64(stats.Bytes), 0.8*3*mb)
	assert.Equal(t, 9, stats.Entries)

	// Exactly the oldest entries went: k1 to k4.
	for _, key := range []string{"k1", "k2", "k3", "k4"} {
		assert.False(t, c.Contains(ctx, key), key)
	}
	for _, key := range []string{"k0", "k5", "k9", "k10", "k11", "k12"} {
		assert.True(t, c.Contains(ctx, key), key)
	}
}

func TestCache_EvictNoOpUnderBudget(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(NewMemoryStore())
	require.True(t, c.Put(ctx, "a", make([]byte, mb), 2))
	assert.Equal(t, 0, c.Evict(ctx, 2))

	// Shrinking the budget evicts on demand.
	assert.Equal(t, 1, c.Evict(ctx, 0.5))
	assert.Equal(t, Stats{}, c.Stats(ctx))
}

func TestCache_EvictTiesInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	bs := NewMemoryStore()
	c := New(bs)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	clip := make([]byte, mb/2)
	for _, key := range []string{"first", "second", "third", "fourth"} {
		require.True(t, c.Put(ctx, key, clip, 100))
	}
	// Budget 1.5 MB, 2 MB stored: evict down to 1.2 MB, two clips.
	assert.Equal(t, 2, c.Evict(ctx, 1.5))
	assert.False(t, c.Contains(ctx, "first"))
	assert.False(t, c.Contains(ctx, "second"))
	assert.True(t, c.Contains(ctx, "third"))
	assert.True(t, c.Contains(ctx, "fourth"))
}

func TestNormalizeBudget(t *testing.T) {
	assert.Equal(t, 50.0, NormalizeBudget(0))
	assert.Equal(t, 50.0, NormalizeBudget(-3))
	assert.Equal(t, 20.0, NormalizeBudget(20))
	assert.Equal(t, 100.0, NormalizeBudget(250))
}

func TestCache_Clear(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(NewMemoryStore())
	require.True(t, c.Put(ctx, "a", []byte{1}, 50))
	require.True(t, c.Put(ctx, "b", []byte{2}, 50))

	c.Clear(ctx)
	assert.Equal(t, Stats{}, c.Stats(ctx))
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestCache_OfflineStoreDegrades(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(OfflineStore{})

	assert.NotPanics(t, func() {
		assert.False(t, c.Put(ctx, "a", []byte{1}, 50))
		_, ok := c.Get(ctx, "a")
		assert.False(t, ok)
		assert.False(t, c.Contains(ctx, "a"))
		assert.Equal(t, 0, c.Evict(ctx, 50))
		assert.Equal(t, Stats{}, c.Stats(ctx))
		c.Clear(ctx)
	})
}

func TestCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(NewMemoryStore())
	clip := make([]byte, 64*1024)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := fmt.Sprintf("k%d", (w*50+i)%40)
				c.Put(ctx, key, clip, 1)
				if blob, ok := c.Get(ctx, key); ok && len(blob) != len(clip) {
					t.Errorf("partial blob for %s: %d bytes", key, len(blob))
				}
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Stats(ctx).Bytes, int64(mb))
}

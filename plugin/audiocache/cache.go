package audiocache

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hrygo/flashdeck/store"
)

const (
	// DefaultBudgetMB is used when no positive budget is configured.
	DefaultBudgetMB = 50
	// MaxBudgetMB caps the configured budget.
	MaxBudgetMB = 100
	// EvictTargetRatio is the fraction of the budget eviction shrinks the cache to.
	EvictTargetRatio = 0.8
)

// Stats describes the cache content.
type Stats struct {
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

// NormalizeBudget applies the default and the upper bound to a budget in MB.
func NormalizeBudget(maxSizeMB float64) float64 {
	if maxSizeMB <= 0 {
		return DefaultBudgetMB
	}
	return min(maxSizeMB, MaxBudgetMB)
}

// Cache is a byte-budgeted LRU cache of speech clips. A single mutex serializes all
// operations, so a read never observes a partially written or evicted entry.
// Store failures never escape: reads miss, writes report false, and the failure is logged.
type Cache struct {
	mu    sync.Mutex
	store ByteStore
	now   func() time.Time
}

// New creates a cache over store.
func New(bs ByteStore) *Cache {
	return &Cache{
		store: bs,
		now:   time.Now,
	}
}

// Get returns the clip stored under key. A hit counts as an access for eviction order.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.store.GetEntry(ctx, key)
	if err != nil {
		c.logFailure("get", key, err)
		return nil, false
	}
	if entry == nil {
		return nil, false
	}
	if err := c.store.TouchEntry(ctx, key, c.now().UnixMilli()); err != nil {
		c.logFailure("touch", key, err)
	}
	return entry.Blob, true
}

// Contains reports whether key is cached without counting as an access.
func (c *Cache) Contains(ctx context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.store.GetEntry(ctx, key)
	if err != nil {
		c.logFailure("contains", key, err)
		return false
	}
	return entry != nil
}

// Put stores blob under key, then evicts down to the budget. It reports whether the
// clip was stored.
func (c *Cache) Put(ctx context.Context, key string, blob []byte, maxSizeMB float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.store.PutEntry(ctx, &store.AudioEntry{
		Key:        key,
		Blob:       blob,
		Size:       int64(len(blob)),
		AccessedTs: c.now().UnixMilli(),
	})
	if err != nil {
		c.logFailure("put", key, err)
		return false
	}
	c.evictLocked(ctx, maxSizeMB)
	return true
}

// Evict removes least recently accessed entries while the cache holds more than
// maxSizeMB. Once triggered it shrinks the cache to EvictTargetRatio of the budget.
// It returns the number of entries removed.
func (c *Cache) Evict(ctx context.Context, maxSizeMB float64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLocked(ctx, maxSizeMB)
}

func (c *Cache) evictLocked(ctx context.Context, maxSizeMB float64) int {
	maxBytes := NormalizeBudget(maxSizeMB) * (1 << 20)

	entries, err := c.store.ListEntries(ctx)
	if err != nil {
		c.logFailure("evict", "", err)
		return 0
	}

	var total int64
	for _, entry := range entries {
		total += entry.Size
	}
	if float64(total) <= maxBytes {
		return 0
	}

	// Stable sort keeps the store's insertion order for equal access times.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].AccessedTs < entries[j].AccessedTs
	})

	target := maxBytes * EvictTargetRatio
	evicted := 0
	for _, entry := range entries {
		if float64(total) <= target {
			break
		}
		if err := c.store.DeleteEntry(ctx, entry.Key); err != nil {
			c.logFailure("evict", entry.Key, err)
			break
		}
		total -= entry.Size
		evicted++
	}

	slog.Debug("audio cache evicted",
		"evicted", evicted,
		"remaining_bytes", total,
		"max_bytes", int64(maxBytes),
	)
	return evicted
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.ClearEntries(ctx); err != nil {
		c.logFailure("clear", "", err)
	}
}

// Stats returns the number of entries and their total size. An unreachable store
// reports an empty cache.
func (c *Cache) Stats(ctx context.Context) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.store.ListEntries(ctx)
	if err != nil {
		c.logFailure("stats", "", err)
		return Stats{}
	}
	stats := Stats{Entries: len(entries)}
	for _, entry := range entries {
		stats.Bytes += entry.Size
	}
	return stats
}

func (c *Cache) logFailure(op, key string, err error) {
	level := slog.LevelError
	if errors.Is(err, ErrStoreOffline) {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "audio cache degraded to miss",
		"op", op,
		"key", truncateForLog(key),
		"error", err,
	)
}

func truncateForLog(key string) string {
	runes := []rune(key)
	if len(runes) > 32 {
		return string(runes[:32]) + "…"
	}
	return key
}

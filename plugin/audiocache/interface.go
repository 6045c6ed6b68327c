// Package audiocache stores synthesized speech clips under a byte budget with
// least-recently-used eviction.
package audiocache

import (
	"context"

	"github.com/hrygo/flashdeck/store"
)

// ErrStoreOffline reports an unreachable byte store. Cache operations treat it as a miss.
var ErrStoreOffline = store.ErrStoreOffline

// ByteStore is the storage under the cache. Implementations report an unreachable
// backend with an error wrapping ErrStoreOffline.
type ByteStore interface {
	// GetEntry returns nil when key is absent.
	GetEntry(ctx context.Context, key string) (*store.AudioEntry, error)
	// PutEntry inserts or replaces an entry. A replaced entry keeps its insertion order.
	PutEntry(ctx context.Context, entry *store.AudioEntry) error
	// TouchEntry sets the access time of an existing entry.
	TouchEntry(ctx context.Context, key string, accessedTs int64) error
	DeleteEntry(ctx context.Context, key string) error
	// ListEntries returns entry metadata without blobs, by ascending access time and then
	// insertion order.
	ListEntries(ctx context.Context) ([]*store.AudioEntry, error)
	ClearEntries(ctx context.Context) error
}

var _ ByteStore = (*store.Store)(nil)

package audiocache

import (
	"context"
	"fmt"

	"github.com/hrygo/flashdeck/store"
)

// OfflineStore is a ByteStore whose backend is always unreachable, for testing degradation.
type OfflineStore struct{}

func (OfflineStore) GetEntry(ctx context.Context, key string) (*store.AudioEntry, error) {
	return nil, offlineErr()
}

func (OfflineStore) PutEntry(ctx context.Context, entry *store.AudioEntry) error {
	return offlineErr()
}

func (OfflineStore) TouchEntry(ctx context.Context, key string, accessedTs int64) error {
	return offlineErr()
}

func (OfflineStore) DeleteEntry(ctx context.Context, key string) error {
	return offlineErr()
}

func (OfflineStore) ListEntries(ctx context.Context) ([]*store.AudioEntry, error) {
	return nil, offlineErr()
}

func (OfflineStore) ClearEntries(ctx context.Context) error {
	return offlineErr()
}

func offlineErr() error {
	return fmt.Errorf("%w: quota exceeded", ErrStoreOffline)
}

var _ ByteStore = OfflineStore{}

package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/flashdeck/store"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	config := DefaultRedisConfig()
	config.Addr = mr.Addr()

	rs, err := NewRedisStore(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })
	return rs, mr
}

func TestRedisStore_PutGet(t *testing.T) {
	ctx := context.Background()
	rs, _ := newTestRedisStore(t)

	entry, err := rs.GetEntry(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, rs.PutEntry(ctx, &store.AudioEntry{Key: "hola|alloy", Blob: []byte("mp3"), Size: 3, AccessedTs: 10}))

	entry, err = rs.GetEntry(ctx, "hola|alloy")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []byte("mp3"), entry.Blob)
	assert.EqualValues(t, 3, entry.Size)
	assert.EqualValues(t, 10, entry.AccessedTs)
}

func TestRedisStore_ListOrder(t *testing.T) {
	ctx := context.Background()
	rs, _ := newTestRedisStore(t)

	require.NoError(t, rs.PutEntry(ctx, &store.AudioEntry{Key: "b", Blob: []byte{1}, Size: 1, AccessedTs: 100}))
	require.NoError(t, rs.PutEntry(ctx, &store.AudioEntry{Key: "a", Blob: []byte{1, 2}, Size: 2, AccessedTs: 100}))
	require.NoError(t, rs.PutEntry(ctx, &store.AudioEntry{Key: "c", Blob: []byte{1}, Size: 1, AccessedTs: 50}))

	list, err := rs.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	// Equal access times fall back to insertion order, not key order.
	assert.Equal(t, "c", list[0].Key)
	assert.Equal(t, "b", list[1].Key)
	assert.Equal(t, "a", list[2].Key)
	assert.EqualValues(t, 2, list[2].Size)
	assert.Nil(t, list[2].Blob)

	require.NoError(t, rs.TouchEntry(ctx, "c", 300))
	require.NoError(t, rs.TouchEntry(ctx, "unknown", 400))
	list, err = rs.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[2].Key)
}

func TestRedisStore_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	rs, mr := newTestRedisStore(t)

	require.NoError(t, rs.PutEntry(ctx, &store.AudioEntry{Key: "a", Blob: []byte{1}, Size: 1, AccessedTs: 1}))
	require.NoError(t, rs.PutEntry(ctx, &store.AudioEntry{Key: "b", Blob: []byte{2}, Size: 1, AccessedTs: 2}))

	require.NoError(t, rs.DeleteEntry(ctx, "a"))
	entry, err := rs.GetEntry(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, rs.ClearEntries(ctx))
	list, err := rs.ListEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.False(t, mr.Exists("flashdeck:audio:blob:b"))
}

func TestRedisStore_Offline(t *testing.T) {
	ctx := context.Background()
	rs, mr := newTestRedisStore(t)
	mr.SetError("server unavailable")

	_, err := rs.GetEntry(ctx, "a")
	assert.ErrorIs(t, err, store.ErrStoreOffline)
	assert.ErrorIs(t, rs.PutEntry(ctx, &store.AudioEntry{Key: "a", Blob: []byte{1}, Size: 1}), store.ErrStoreOffline)
}

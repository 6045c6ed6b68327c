package audiocache

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/hrygo/flashdeck/store"
)

// MemoryStore is a ByteStore held in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	seq     int64
}

type memoryEntry struct {
	blob       []byte
	accessedTs int64
	seq        int64
}

// NewMemoryStore creates an empty in-memory byte store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

func (m *MemoryStore) GetEntry(ctx context.Context, key string) (*store.AudioEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &store.AudioEntry{
		Key:        key,
		Blob:       bytes.Clone(e.blob),
		Size:       int64(len(e.blob)),
		AccessedTs: e.accessedTs,
	}, nil
}

func (m *MemoryStore) PutEntry(ctx context.Context, entry *store.AudioEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[entry.Key]; ok {
		e.blob = bytes.Clone(entry.Blob)
		e.accessedTs = entry.AccessedTs
		return nil
	}
	m.seq++
	m.entries[entry.Key] = &memoryEntry{
		blob:       bytes.Clone(entry.Blob),
		accessedTs: entry.AccessedTs,
		seq:        m.seq,
	}
	return nil
}

func (m *MemoryStore) TouchEntry(ctx context.Context, key string, accessedTs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		e.accessedTs = accessedTs
	}
	return nil
}

func (m *MemoryStore) DeleteEntry(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) ListEntries(ctx context.Context) ([]*store.AudioEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type ordered struct {
		entry *store.AudioEntry
		seq   int64
	}
	items := make([]ordered, 0, len(m.entries))
	for key, e := range m.entries {
		items = append(items, ordered{
			entry: &store.AudioEntry{Key: key, Size: int64(len(e.blob)), AccessedTs: e.accessedTs},
			seq:   e.seq,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].entry.AccessedTs != items[j].entry.AccessedTs {
			return items[i].entry.AccessedTs < items[j].entry.AccessedTs
		}
		return items[i].seq < items[j].seq
	})

	list := make([]*store.AudioEntry, 0, len(items))
	for _, item := range items {
		list = append(list, item.entry)
	}
	return list, nil
}

func (m *MemoryStore) ClearEntries(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*memoryEntry)
	return nil
}

var _ ByteStore = (*MemoryStore)(nil)

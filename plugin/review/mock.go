package review

import (
	"context"
	"sync"

	"github.com/hrygo/flashdeck/store"
)

// MockCardStore is an in-memory CardStore for testing.
type MockCardStore struct {
	mu    sync.Mutex
	cards map[string][]*store.Card
}

// NewMockCardStore creates a new mock card store.
func NewMockCardStore() *MockCardStore {
	return &MockCardStore{cards: make(map[string][]*store.Card)}
}

// AddCard appends a card to its set.
func (m *MockCardStore) AddCard(card *store.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[card.SetID] = append(m.cards[card.SetID], card)
}

func (m *MockCardStore) GetCard(ctx context.Context, setID, cardID string) (*store.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, card := range m.cards[setID] {
		if card.ID == cardID {
			copied := *card
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockCardStore) ListSetCards(ctx context.Context, setID string) ([]*store.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]*store.Card, 0, len(m.cards[setID]))
	for _, card := range m.cards[setID] {
		copied := *card
		list = append(list, &copied)
	}
	return list, nil
}

func (m *MockCardStore) UpdateCardStats(ctx context.Context, setID, cardID string, stats store.ReviewStats) (*store.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, card := range m.cards[setID] {
		if card.ID == cardID {
			card.Stats = &stats
			copied := *card
			return &copied, nil
		}
	}
	return nil, nil
}

var _ CardStore = (*MockCardStore)(nil)

package study

import (
	"context"
	"errors"
	"sync"

	"github.com/hrygo/flashdeck/store"
)

// MockCardProvider is an in-memory CardProvider for testing.
type MockCardProvider struct {
	mu    sync.Mutex
	cards map[string][]*store.Card

	// FailUpdates makes every update return an error.
	FailUpdates bool
}

// NewMockCardProvider creates a provider holding cards.
func NewMockCardProvider(cards ...*store.Card) *MockCardProvider {
	m := &MockCardProvider{cards: make(map[string][]*store.Card)}
	for _, card := range cards {
		m.cards[card.SetID] = append(m.cards[card.SetID], card)
	}
	return m
}

// Get returns a copy of a card, or nil.
func (m *MockCardProvider) Get(setID, cardID string) *store.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	if card := m.find(setID, cardID); card != nil {
		copied := *card
		return &copied
	}
	return nil
}

// Remove deletes a card from its set.
func (m *MockCardProvider) Remove(setID, cardID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.cards[setID]
	for i, card := range list {
		if card.ID == cardID {
			m.cards[setID] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (m *MockCardProvider) ListSetCards(ctx context.Context, setID string) ([]*store.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]*store.Card, 0, len(m.cards[setID]))
	for _, card := range m.cards[setID] {
		copied := *card
		list = append(list, &copied)
	}
	return list, nil
}

func (m *MockCardProvider) UpdateCardStats(ctx context.Context, setID, cardID string, stats store.ReviewStats) (*store.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUpdates {
		return nil, errors.New("update failed")
	}
	card := m.find(setID, cardID)
	if card == nil {
		return nil, nil
	}
	card.Stats = &stats
	copied := *card
	return &copied, nil
}

func (m *MockCardProvider) UpdateCardMastery(ctx context.Context, setID, cardID string, count int) (*store.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUpdates {
		return nil, errors.New("update failed")
	}
	card := m.find(setID, cardID)
	if card == nil {
		return nil, nil
	}
	card.MasteryCount = count
	copied := *card
	return &copied, nil
}

func (m *MockCardProvider) find(setID, cardID string) *store.Card {
	for _, card := range m.cards[setID] {
		if card.ID == cardID {
			return card
		}
	}
	return nil
}

var _ CardProvider = (*MockCardProvider)(nil)

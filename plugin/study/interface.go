// Package study implements resumable learning sessions over a study set.
package study

import (
	"context"

	"github.com/hrygo/flashdeck/store"
)

// CardProvider gives sessions read access to a set's cards and the two ways of recording
// an answer. *store.Store implements it.
type CardProvider interface {
	ListSetCards(ctx context.Context, setID string) ([]*store.Card, error)
	UpdateCardStats(ctx context.Context, setID, cardID string, stats store.ReviewStats) (*store.Card, error)
	UpdateCardMastery(ctx context.Context, setID, cardID string, count int) (*store.Card, error)
}

// SessionStore persists one session snapshot per user.
type SessionStore interface {
	SaveSession(ctx context.Context, session *store.StudySession) error
	// LoadSession returns nil when the user has no snapshot.
	LoadSession(ctx context.Context, userID int32) (*store.StudySession, error)
	ClearSession(ctx context.Context, userID int32) error
}

// Rand is the random source used for shuffling and reinsertion. *math/rand.Rand implements it.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

var (
	_ CardProvider = (*store.Store)(nil)
	_ SessionStore = (*store.Store)(nil)
)

package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hrygo/flashdeck/store"
)

// DefaultDueLimit bounds ListDueCards when no limit is given.
const DefaultDueLimit = 20

// CardStore is the card access the review service needs. *store.Store implements it.
type CardStore interface {
	GetCard(ctx context.Context, setID, cardID string) (*store.Card, error)
	ListSetCards(ctx context.Context, setID string) ([]*store.Card, error)
	UpdateCardStats(ctx context.Context, setID, cardID string, stats store.ReviewStats) (*store.Card, error)
}

var _ CardStore = (*store.Store)(nil)

// ErrCardNotFound is returned when a reviewed card does not exist in its set.
var ErrCardNotFound = errors.New("card not found")

// Service records reviews and answers due queries for stored cards.
type Service struct {
	cards CardStore
	now   func() time.Time
}

// NewService creates a new review service.
func NewService(cards CardStore) *Service {
	return &Service{
		cards: cards,
		now:   time.Now,
	}
}

// RecordReview applies grade to a card and persists its next schedule.
func (s *Service) RecordReview(ctx context.Context, setID, cardID string, grade Grade) (*store.Card, error) {
	if !grade.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGrade, int(grade))
	}

	card, err := s.cards.GetCard(ctx, setID, cardID)
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	if card == nil {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}

	now := s.now()
	current := NewStats(now)
	if stats := FromStore(card.Stats); stats != nil {
		current = *stats
	}
	next, err := ComputeNextReview(current, grade, now)
	if err != nil {
		return nil, err
	}

	updated, err := s.cards.UpdateCardStats(ctx, setID, cardID, ToStore(next))
	if err != nil {
		return nil, fmt.Errorf("update card stats: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}

	slog.Debug("review recorded",
		"set_id", setID,
		"card_id", cardID,
		"grade", grade.String(),
		"interval_days", next.IntervalDays,
		"ease", next.Ease,
	)
	return updated, nil
}

// ListDueCards returns the due cards of a set, most overdue first and starred cards ahead
// of unstarred ones at equal due time. It also returns the total number of due cards.
func (s *Service) ListDueCards(ctx context.Context, setID string, limit int) ([]*store.Card, int, error) {
	cards, err := s.cards.ListSetCards(ctx, setID)
	if err != nil {
		return nil, 0, fmt.Errorf("list cards: %w", err)
	}

	now := s.now()
	due := make([]*store.Card, 0, len(cards))
	for _, card := range cards {
		if IsDue(FromStore(card.Stats), now) {
			due = append(due, card)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		di, dj := dueTs(due[i]), dueTs(due[j])
		if di != dj {
			return di < dj
		}
		return due[i].Starred && !due[j].Starred
	})

	total := len(due)
	if limit <= 0 {
		limit = DefaultDueLimit
	}
	if len(due) > limit {
		due = due[:limit]
	}
	return due, total, nil
}

// dueTs orders never-scheduled cards ahead of everything else.
func dueTs(card *store.Card) int64 {
	if card.Stats == nil {
		return 0
	}
	return card.Stats.DueTs
}

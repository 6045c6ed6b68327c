package study

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/hrygo/flashdeck/plugin/review"
	"github.com/hrygo/flashdeck/store"
)

// Question is the card awaiting an answer together with the session state.
type Question struct {
	Session *Session
	// Card is nil when the session is complete.
	Card *store.Card
}

// Manager owns the live sessions of all users. One mutex covers every answer and its
// persist, so readers never observe a mutation that has not been saved.
type Manager struct {
	mu       sync.Mutex
	cards    CardProvider
	sessions SessionStore
	rng      Rand
	reinsert ReinsertPolicy
	now      func() time.Time
	live     map[int32]*Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithRand sets the random source for shuffles and the default reinsert policy.
func WithRand(rng Rand) Option {
	return func(m *Manager) {
		m.rng = rng
		m.reinsert = RandomReinsert(rng)
	}
}

// WithReinsertPolicy overrides where missed cards are requeued.
func WithReinsertPolicy(policy ReinsertPolicy) Option {
	return func(m *Manager) {
		m.reinsert = policy
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a session manager.
func NewManager(cards CardProvider, sessions SessionStore, opts ...Option) *Manager {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	m := &Manager{
		cards:    cards,
		sessions: sessions,
		rng:      rng,
		reinsert: RandomReinsert(rng),
		now:      time.Now,
		live:     make(map[int32]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates a session over the cards of setID that mode and filter select, replacing
// any previous session of the user.
func (m *Manager) Start(ctx context.Context, userID int32, setID string, mode Mode, grading Grading, filter CardFilter) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cards, err := m.cards.ListSetCards(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	now := m.now()
	ids := SelectCardIDs(cards, mode, now, filter)

	session, err := Create(userID, setID, ids, mode, grading, m.rng, now)
	if err != nil {
		return nil, err
	}
	if err := m.sessions.SaveSession(ctx, session.Snapshot(now)); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	m.live[userID] = session

	slog.Info("study session started",
		"user_id", userID,
		"set_id", setID,
		"mode", mode,
		"grading", grading,
		"cards", len(ids),
	)
	return session.Clone(), nil
}

// Resume returns the session of a user, loading it from the session store when it is not
// live. Expired snapshots are cleared and reported as ErrSessionExpired.
func (m *Manager) Resume(ctx context.Context, userID int32) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

// Current returns the question awaiting an answer.
func (m *Manager) Current(ctx context.Context, userID int32) (*Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	cards, err := m.prune(ctx, session)
	if err != nil {
		return nil, err
	}

	q := &Question{Session: session.Clone()}
	if cardID, ok := session.CurrentQuestion(); ok {
		q.Card = cards[cardID]
		return q, nil
	}

	// Every remaining card was deleted from the set.
	delete(m.live, userID)
	if err := m.sessions.ClearSession(ctx, userID); err != nil {
		return nil, fmt.Errorf("clear session: %w", err)
	}
	return q, nil
}

// Answer records outcome for the current card, updates the card under the session's grading
// policy and persists the session before returning. A completed session is cleared.
func (m *Manager) Answer(ctx context.Context, userID int32, outcome Outcome) (Delta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.load(ctx, userID)
	if err != nil {
		return Delta{}, err
	}
	cards, err := m.prune(ctx, session)
	if err != nil {
		return Delta{}, err
	}

	cardID, ok := session.CurrentQuestion()
	if !ok {
		// Every remaining card was deleted from the set.
		delete(m.live, userID)
		if err := m.sessions.ClearSession(ctx, userID); err != nil {
			return Delta{}, fmt.Errorf("clear session: %w", err)
		}
		return Delta{}, ErrSessionComplete
	}
	card := cards[cardID]

	next := session.Clone()
	delta, err := next.Answer(outcome, m.reinsert)
	if err != nil {
		return Delta{}, err
	}

	now := m.now()
	undo, err := m.recordOnCard(ctx, next, card, outcome, delta.Correct, now)
	if err != nil {
		return Delta{}, err
	}

	if delta.Phase == PhaseComplete {
		if err := m.sessions.ClearSession(ctx, userID); err != nil {
			rollback(ctx, undo, next, cardID)
			return Delta{}, fmt.Errorf("clear session: %w", err)
		}
		delete(m.live, userID)
		slog.Info("study session complete",
			"user_id", userID,
			"set_id", next.SetID,
			"questions_answered", next.QuestionsAnswered,
			"correct_count", next.CorrectCount,
		)
		return delta, nil
	}

	if err := m.sessions.SaveSession(ctx, next.Snapshot(now)); err != nil {
		rollback(ctx, undo, next, cardID)
		return Delta{}, fmt.Errorf("save session: %w", err)
	}
	next.SavedAt = now
	m.live[userID] = next
	return delta, nil
}

// Continue leaves the batch summary and persists the session.
func (m *Manager) Continue(ctx context.Context, userID int32) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := session.Clone()
	next.Continue()

	now := m.now()
	if err := m.sessions.SaveSession(ctx, next.Snapshot(now)); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	next.SavedAt = now
	m.live[userID] = next
	return next.Clone(), nil
}

// Exit leaves a session. Remaining cards are persisted for a later Resume; a session with
// nothing left is treated as complete and cleared.
func (m *Manager) Exit(ctx context.Context, userID int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.live[userID]
	if !ok {
		return nil
	}
	delete(m.live, userID)

	if session.Phase() == PhaseComplete {
		return m.sessions.ClearSession(ctx, userID)
	}
	if err := m.sessions.SaveSession(ctx, session.Snapshot(m.now())); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Discard drops the session of a user without keeping it resumable.
func (m *Manager) Discard(ctx context.Context, userID int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.live, userID)
	if err := m.sessions.ClearSession(ctx, userID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// load returns the live session, restoring it from the session store when needed.
// Callers hold m.mu.
func (m *Manager) load(ctx context.Context, userID int32) (*Session, error) {
	if session, ok := m.live[userID]; ok {
		return session, nil
	}

	persisted, err := m.sessions.LoadSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if persisted == nil {
		return nil, ErrNoSession
	}

	session, ok := Resume(persisted, m.now())
	if !ok {
		if err := m.sessions.ClearSession(ctx, userID); err != nil {
			slog.Warn("failed to clear expired session", "user_id", userID, "error", err)
		}
		return nil, ErrSessionExpired
	}
	if _, err := m.prune(ctx, session); err != nil {
		return nil, err
	}
	m.live[userID] = session
	return session, nil
}

// prune removes cards deleted from the set since the session started and returns the
// remaining cards by id.
func (m *Manager) prune(ctx context.Context, session *Session) (map[string]*store.Card, error) {
	list, err := m.cards.ListSetCards(ctx, session.SetID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	cards := make(map[string]*store.Card, len(list))
	known := make(map[string]bool, len(list))
	for _, card := range list {
		cards[card.ID] = card
		known[card.ID] = true
	}
	if removed := session.Prune(known); removed > 0 {
		slog.Warn("skipped deleted cards in session",
			"user_id", session.UserID,
			"set_id", session.SetID,
			"removed", removed,
		)
	}
	return cards, nil
}

// recordOnCard applies the answer to the card and returns a function restoring the card's
// previous state.
func (m *Manager) recordOnCard(ctx context.Context, session *Session, card *store.Card, outcome Outcome, correct bool, now time.Time) (func(context.Context) error, error) {
	if card == nil {
		return func(context.Context) error { return nil }, nil
	}

	switch session.Grading {
	case GradingChoice:
		previous := card.MasteryCount
		count := 0
		if correct {
			count = previous + 1
		}
		if _, err := m.cards.UpdateCardMastery(ctx, session.SetID, card.ID, count); err != nil {
			return nil, fmt.Errorf("update card mastery: %w", err)
		}
		return func(ctx context.Context) error {
			_, err := m.cards.UpdateCardMastery(ctx, session.SetID, card.ID, previous)
			return err
		}, nil
	default:
		current := review.NewStats(now)
		if stats := review.FromStore(card.Stats); stats != nil {
			current = *stats
		}
		next, err := review.ComputeNextReview(current, outcome.Grade, now)
		if err != nil {
			return nil, err
		}
		if _, err := m.cards.UpdateCardStats(ctx, session.SetID, card.ID, review.ToStore(next)); err != nil {
			return nil, fmt.Errorf("update card stats: %w", err)
		}
		return func(ctx context.Context) error {
			_, err := m.cards.UpdateCardStats(ctx, session.SetID, card.ID, review.ToStore(current))
			return err
		}, nil
	}
}

// rollback restores a card after the session could not be persisted, so a retried answer
// is not applied twice.
func rollback(ctx context.Context, undo func(context.Context) error, session *Session, cardID string) {
	if err := undo(ctx); err != nil {
		slog.Error("failed to restore card after session persist failure",
			"user_id", session.UserID,
			"set_id", session.SetID,
			"card_id", cardID,
			"error", err,
		)
	}
}

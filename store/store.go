package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/flashdeck/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateStudySet(ctx context.Context, create *StudySet) (*StudySet, error) {
	if create.ID == "" {
		create.ID = shortuuid.New()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().UnixMilli()
	}
	return s.driver.CreateStudySet(ctx, create)
}

func (s *Store) ListStudySets(ctx context.Context, find *FindStudySet) ([]*StudySet, error) {
	return s.driver.ListStudySets(ctx, find)
}

func (s *Store) GetStudySet(ctx context.Context, id string) (*StudySet, error) {
	list, err := s.driver.ListStudySets(ctx, &FindStudySet{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// CreateCard appends a card to its set. New cards start with fresh review stats due now.
func (s *Store) CreateCard(ctx context.Context, create *Card) (*Card, error) {
	existing, err := s.driver.ListCards(ctx, &FindCard{SetID: &create.SetID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to count cards")
	}
	if len(existing) >= MaxCardsPerSet {
		return nil, errors.Wrapf(ErrSetFull, "study set %s already holds %d cards", create.SetID, MaxCardsPerSet)
	}

	now := time.Now().UnixMilli()
	if create.ID == "" {
		create.ID = shortuuid.New()
	}
	create.Position = len(existing)
	if create.Stats == nil {
		create.Stats = &ReviewStats{
			Ease:         2.5,
			IntervalDays: 1,
			DueTs:        now,
		}
	}
	create.CreatedTs = now
	create.UpdatedTs = now
	return s.driver.CreateCard(ctx, create)
}

func (s *Store) ListCards(ctx context.Context, find *FindCard) ([]*Card, error) {
	return s.driver.ListCards(ctx, find)
}

func (s *Store) GetCard(ctx context.Context, setID, cardID string) (*Card, error) {
	list, err := s.driver.ListCards(ctx, &FindCard{ID: &cardID, SetID: &setID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateCard(ctx context.Context, update *UpdateCard) (*Card, error) {
	if update.UpdatedTs == 0 {
		update.UpdatedTs = time.Now().UnixMilli()
	}
	return s.driver.UpdateCard(ctx, update)
}

func (s *Store) DeleteCard(ctx context.Context, delete *DeleteCard) error {
	return s.driver.DeleteCard(ctx, delete)
}

// ListSetCards returns the cards of a set in collection order.
func (s *Store) ListSetCards(ctx context.Context, setID string) ([]*Card, error) {
	return s.driver.ListCards(ctx, &FindCard{SetID: &setID})
}

// UpdateCardStats replaces the review stats of a card. It returns nil when the card no longer exists.
func (s *Store) UpdateCardStats(ctx context.Context, setID, cardID string, stats ReviewStats) (*Card, error) {
	card, err := s.UpdateCard(ctx, &UpdateCard{ID: cardID, SetID: setID, Stats: &stats})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// UpdateCardMastery sets the multiple choice mastery counter of a card.
func (s *Store) UpdateCardMastery(ctx context.Context, setID, cardID string, count int) (*Card, error) {
	return s.UpdateCard(ctx, &UpdateCard{ID: cardID, SetID: setID, MasteryCount: &count})
}

// SaveSession persists the session snapshot of its user, replacing any previous one.
func (s *Store) SaveSession(ctx context.Context, session *StudySession) error {
	_, err := s.driver.UpsertStudySession(ctx, session)
	return err
}

// LoadSession returns the persisted snapshot of a user, or nil when none exists.
func (s *Store) LoadSession(ctx context.Context, userID int32) (*StudySession, error) {
	return s.driver.GetStudySession(ctx, &FindStudySession{UserID: userID})
}

// ClearSession removes the persisted snapshot of a user.
func (s *Store) ClearSession(ctx context.Context, userID int32) error {
	return s.driver.DeleteStudySession(ctx, &DeleteStudySession{UserID: userID})
}

// The audio entry methods below back the audio cache. Any driver failure is reported as
// ErrStoreOffline so the cache can degrade to a miss.

func (s *Store) GetEntry(ctx context.Context, key string) (*AudioEntry, error) {
	entry, err := s.driver.GetAudioEntry(ctx, key)
	if err != nil {
		return nil, offline(err)
	}
	return entry, nil
}

func (s *Store) PutEntry(ctx context.Context, entry *AudioEntry) error {
	return offline(s.driver.UpsertAudioEntry(ctx, entry))
}

func (s *Store) TouchEntry(ctx context.Context, key string, accessedTs int64) error {
	return offline(s.driver.TouchAudioEntry(ctx, key, accessedTs))
}

func (s *Store) DeleteEntry(ctx context.Context, key string) error {
	return offline(s.driver.DeleteAudioEntry(ctx, key))
}

func (s *Store) ListEntries(ctx context.Context) ([]*AudioEntry, error) {
	list, err := s.driver.ListAudioEntries(ctx)
	if err != nil {
		return nil, offline(err)
	}
	return list, nil
}

func (s *Store) ClearEntries(ctx context.Context) error {
	return offline(s.driver.ClearAudioEntries(ctx))
}

func offline(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreOffline, err)
}

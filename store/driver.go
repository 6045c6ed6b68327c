package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error)
	GetSystemSetting(ctx context.Context, name string) (*SystemSetting, error)

	// StudySet model related methods.
	CreateStudySet(ctx context.Context, create *StudySet) (*StudySet, error)
	ListStudySets(ctx context.Context, find *FindStudySet) ([]*StudySet, error)

	// Card model related methods.
	CreateCard(ctx context.Context, create *Card) (*Card, error)
	ListCards(ctx context.Context, find *FindCard) ([]*Card, error)
	UpdateCard(ctx context.Context, update *UpdateCard) (*Card, error)
	DeleteCard(ctx context.Context, delete *DeleteCard) error

	// StudySession model related methods.
	UpsertStudySession(ctx context.Context, upsert *StudySession) (*StudySession, error)
	GetStudySession(ctx context.Context, find *FindStudySession) (*StudySession, error)
	DeleteStudySession(ctx context.Context, delete *DeleteStudySession) error

	// AudioEntry model related methods.
	GetAudioEntry(ctx context.Context, key string) (*AudioEntry, error)
	UpsertAudioEntry(ctx context.Context, upsert *AudioEntry) error
	TouchAudioEntry(ctx context.Context, key string, accessedTs int64) error
	DeleteAudioEntry(ctx context.Context, key string) error
	ListAudioEntries(ctx context.Context) ([]*AudioEntry, error)
	ClearAudioEntries(ctx context.Context) error
}

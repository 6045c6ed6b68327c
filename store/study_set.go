package store

import "errors"

// MaxCardsPerSet is the largest number of cards a study set may hold.
const MaxCardsPerSet = 500

// ErrSetFull is returned when a card is added to a set that holds MaxCardsPerSet cards.
var ErrSetFull = errors.New("study set is full")

// StudySet is an ordered collection of cards owned by one user.
type StudySet struct {
	ID        string
	UserID    int32
	Name      string
	CreatedTs int64
}

// FindStudySet specifies the conditions for finding study sets.
type FindStudySet struct {
	ID     *string
	UserID *int32
}

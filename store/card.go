package store

// ReviewStats is the persisted spaced-repetition state of a card.
// Timestamps are unix milliseconds.
type ReviewStats struct {
	Ease           float64
	IntervalDays   int
	DueTs          int64
	Repetitions    int
	LastReviewedTs *int64
}

// Card is a term/definition pair with scheduling state.
type Card struct {
	ID         string
	SetID      string
	Position   int
	Term       string
	Definition string
	Starred    bool

	// Stats is nil for cards that have never been scheduled.
	Stats *ReviewStats
	// MasteryCount is the consecutive-correct counter used by multiple choice sessions.
	MasteryCount int

	CreatedTs int64
	UpdatedTs int64
}

// FindCard specifies the conditions for finding cards.
type FindCard struct {
	ID      *string
	SetID   *string
	Starred *bool
	Limit   *int
}

// UpdateCard specifies the fields to update. Nil fields are left untouched.
type UpdateCard struct {
	ID    string
	SetID string

	Term         *string
	Definition   *string
	Starred      *bool
	Stats        *ReviewStats
	MasteryCount *int
	UpdatedTs    int64
}

// DeleteCard specifies the card to delete.
type DeleteCard struct {
	ID    string
	SetID string
}

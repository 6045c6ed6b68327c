package study

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hrygo/flashdeck/plugin/review"
	"github.com/hrygo/flashdeck/store"
)

const (
	// BatchSize is the number of answers between batch summaries.
	BatchSize = 10
	// SessionExpiry is how long an untouched snapshot stays resumable.
	SessionExpiry = 7 * 24 * time.Hour
	// MinCards is the smallest number of applicable cards a session starts with.
	MinCards = 2
)

var (
	// ErrInsufficientCards is returned when fewer than MinCards cards apply to a study mode.
	ErrInsufficientCards = errors.New("insufficient cards")
	// ErrNoSession is returned when a user has no resumable session.
	ErrNoSession = errors.New("no session")
	// ErrSessionExpired reports a snapshot older than SessionExpiry. It is treated as absence.
	ErrSessionExpired = fmt.Errorf("%w: session expired", ErrNoSession)
	// ErrSessionComplete is returned when answering a session with an empty queue.
	ErrSessionComplete = errors.New("session complete")
	// ErrSummaryPending is returned when answering before a batch summary was continued.
	ErrSummaryPending = errors.New("batch summary pending")
	// ErrInvalidMode is returned for an unknown study mode or grading policy.
	ErrInvalidMode = errors.New("invalid study mode")
)

// Mode selects which cards of a set a session studies.
type Mode string

const (
	ModeAll     Mode = "all"
	ModeStarred Mode = "starred"
	ModeDue     Mode = "due"
)

// Grading selects how answers are recorded on cards.
type Grading string

const (
	// GradingSM2 runs every answer through the SM-2 scheduler.
	GradingSM2 Grading = "sm2"
	// GradingChoice keeps a consecutive-correct counter for multiple choice.
	GradingChoice Grading = "choice"
)

// ParseMode validates a study mode name. An empty name selects ModeAll.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAll:
		return ModeAll, nil
	case ModeStarred, ModeDue:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// ParseGrading validates a grading policy name. An empty name selects GradingSM2.
func ParseGrading(s string) (Grading, error) {
	switch Grading(s) {
	case "", GradingSM2:
		return GradingSM2, nil
	case GradingChoice:
		return GradingChoice, nil
	}
	return "", fmt.Errorf("%w: grading %q", ErrInvalidMode, s)
}

// Phase is the presentation state of a session.
type Phase int

const (
	PhaseActive Phase = iota
	PhaseBatchSummary
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseBatchSummary:
		return "batch_summary"
	case PhaseComplete:
		return "complete"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "active":
		*p = PhaseActive
	case "batch_summary":
		*p = PhaseBatchSummary
	case "complete":
		*p = PhaseComplete
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// Outcome is the learner's answer to the current question. Grade is read by SM-2
// sessions and Correct by multiple choice sessions.
type Outcome struct {
	Grade   review.Grade
	Correct bool
}

// ReinsertPolicy returns where a missed card goes back into a queue that has
// remaining cards left after it.
type ReinsertPolicy func(remaining int) int

// RandomReinsert places a missed card 2 to 4 slots ahead, or last when fewer remain.
func RandomReinsert(rng Rand) ReinsertPolicy {
	return func(remaining int) int {
		return min(remaining, 2+rng.Intn(3))
	}
}

// Delta describes the effect of one answer.
type Delta struct {
	CardID  string `json:"card_id"`
	Correct bool   `json:"correct"`
	Phase   Phase  `json:"phase"`
	// InsertIndex is the requeue position of a missed card, or -1 when it was mastered.
	InsertIndex       int `json:"insert_index"`
	QuestionsAnswered int `json:"questions_answered"`
	CorrectCount      int `json:"correct_count"`
}

// Session is one pass over a shuffled queue of cards.
type Session struct {
	UserID            int32
	SetID             string
	Mode              Mode
	Grading           Grading
	Queue             []string
	MasteredIDs       []string
	CurrentCardID     string
	QuestionsAnswered int
	CorrectCount      int
	SummaryPending    bool
	StartedAt         time.Time
	SavedAt           time.Time
}

// Create starts a session over cardIDs in a uniformly shuffled order.
func Create(userID int32, setID string, cardIDs []string, mode Mode, grading Grading, rng Rand, now time.Time) (*Session, error) {
	if len(cardIDs) < MinCards {
		return nil, fmt.Errorf("%w: %d applicable, need %d", ErrInsufficientCards, len(cardIDs), MinCards)
	}

	queue := slices.Clone(cardIDs)
	rng.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})

	s := &Session{
		UserID:      userID,
		SetID:       setID,
		Mode:        mode,
		Grading:     grading,
		Queue:       queue,
		MasteredIDs: []string{},
		StartedAt:   now,
		SavedAt:     now,
	}
	s.syncCurrent()
	return s, nil
}

// Resume restores a persisted snapshot. It reports false for a missing snapshot or one
// saved more than SessionExpiry before now.
func Resume(persisted *store.StudySession, now time.Time) (*Session, bool) {
	if persisted == nil {
		return nil, false
	}
	savedAt := time.UnixMilli(persisted.SavedTs)
	if now.Sub(savedAt) > SessionExpiry {
		return nil, false
	}

	s := &Session{
		UserID:            persisted.UserID,
		SetID:             persisted.SetID,
		Mode:              Mode(persisted.Mode),
		Grading:           Grading(persisted.Grading),
		Queue:             slices.Clone(persisted.Queue),
		MasteredIDs:       slices.Clone(persisted.MasteredIDs),
		CurrentCardID:     persisted.CurrentCardID,
		QuestionsAnswered: persisted.QuestionsAnswered,
		CorrectCount:      persisted.CorrectCount,
		SummaryPending:    persisted.SummaryPending,
		StartedAt:         time.UnixMilli(persisted.StartedTs),
		SavedAt:           savedAt,
	}
	if s.Queue == nil {
		s.Queue = []string{}
	}
	if s.MasteredIDs == nil {
		s.MasteredIDs = []string{}
	}
	s.syncCurrent()
	return s, true
}

// Snapshot returns the persisted form of the session stamped with savedAt.
func (s *Session) Snapshot(savedAt time.Time) *store.StudySession {
	return &store.StudySession{
		UserID:            s.UserID,
		SetID:             s.SetID,
		Mode:              string(s.Mode),
		Grading:           string(s.Grading),
		Queue:             slices.Clone(s.Queue),
		MasteredIDs:       slices.Clone(s.MasteredIDs),
		CurrentCardID:     s.CurrentCardID,
		QuestionsAnswered: s.QuestionsAnswered,
		CorrectCount:      s.CorrectCount,
		SummaryPending:    s.SummaryPending,
		StartedTs:         s.StartedAt.UnixMilli(),
		SavedTs:           savedAt.UnixMilli(),
	}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.Queue = slices.Clone(s.Queue)
	c.MasteredIDs = slices.Clone(s.MasteredIDs)
	return &c
}

// CurrentQuestion returns the card awaiting an answer.
func (s *Session) CurrentQuestion() (string, bool) {
	if len(s.Queue) == 0 {
		return "", false
	}
	return s.Queue[0], true
}

// Phase reports the presentation state.
func (s *Session) Phase() Phase {
	switch {
	case len(s.Queue) == 0:
		return PhaseComplete
	case s.SummaryPending:
		return PhaseBatchSummary
	default:
		return PhaseActive
	}
}

// IsSuccess reports whether outcome retires the current card under the session's grading.
func (s *Session) IsSuccess(outcome Outcome) (bool, error) {
	if s.Grading == GradingChoice {
		return outcome.Correct, nil
	}
	if !outcome.Grade.IsValid() {
		return false, fmt.Errorf("%w: %d", review.ErrInvalidGrade, int(outcome.Grade))
	}
	return outcome.Grade.IsSuccess(), nil
}

// Answer records outcome for the current card. A success retires the card; a miss puts it
// back at the position chosen by policy within the remaining queue.
func (s *Session) Answer(outcome Outcome, policy ReinsertPolicy) (Delta, error) {
	if len(s.Queue) == 0 {
		return Delta{}, ErrSessionComplete
	}
	if s.SummaryPending {
		return Delta{}, ErrSummaryPending
	}
	correct, err := s.IsSuccess(outcome)
	if err != nil {
		return Delta{}, err
	}

	cardID := s.Queue[0]
	s.Queue = s.Queue[1:]

	insertIndex := -1
	if correct {
		s.MasteredIDs = append(s.MasteredIDs, cardID)
		s.CorrectCount++
	} else {
		insertIndex = min(max(policy(len(s.Queue)), 0), len(s.Queue))
		s.Queue = slices.Insert(s.Queue, insertIndex, cardID)
	}

	s.QuestionsAnswered++
	s.SummaryPending = s.QuestionsAnswered%BatchSize == 0 && len(s.Queue) > 0
	s.syncCurrent()

	return Delta{
		CardID:            cardID,
		Correct:           correct,
		Phase:             s.Phase(),
		InsertIndex:       insertIndex,
		QuestionsAnswered: s.QuestionsAnswered,
		CorrectCount:      s.CorrectCount,
	}, nil
}

// Continue leaves the batch summary. Queue and mastered cards are untouched.
func (s *Session) Continue() {
	s.SummaryPending = false
}

// Prune drops ids that are not in known, such as cards deleted mid-session.
// It returns the number of ids removed.
func (s *Session) Prune(known map[string]bool) int {
	unknown := func(id string) bool { return !known[id] }
	before := len(s.Queue) + len(s.MasteredIDs)
	s.Queue = slices.DeleteFunc(s.Queue, unknown)
	s.MasteredIDs = slices.DeleteFunc(s.MasteredIDs, unknown)
	s.syncCurrent()
	return before - len(s.Queue) - len(s.MasteredIDs)
}

func (s *Session) syncCurrent() {
	s.CurrentCardID, _ = s.CurrentQuestion()
}

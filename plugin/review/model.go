// Package review implements SM-2 spaced-repetition scheduling for flashcards.
package review

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidGrade is returned for grades outside Again..Easy.
var ErrInvalidGrade = errors.New("invalid grade")

const (
	// DefaultEase is the ease factor of a card that has never been reviewed.
	DefaultEase = 2.5
	// MinEase is the floor below which the ease factor never drops.
	MinEase = 1.3

	day = 24 * time.Hour
)

// Grade is the learner's assessment of how well a card was recalled.
type Grade int

const (
	// GradeAgain - forgotten, the card starts over.
	GradeAgain Grade = 1
	// GradeHard - recalled with serious difficulty.
	GradeHard Grade = 2
	// GradeGood - recalled with some hesitation.
	GradeGood Grade = 3
	// GradeEasy - perfect recall.
	GradeEasy Grade = 4
)

var gradeNames = map[Grade]string{
	GradeAgain: "again",
	GradeHard:  "hard",
	GradeGood:  "good",
	GradeEasy:  "easy",
}

// IsValid reports whether g is one of the four grades.
func (g Grade) IsValid() bool {
	return g >= GradeAgain && g <= GradeEasy
}

// IsSuccess reports whether g counts as a successful recall.
func (g Grade) IsSuccess() bool {
	return g >= GradeGood
}

func (g Grade) String() string {
	if name, ok := gradeNames[g]; ok {
		return name
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}

func (g Grade) MarshalText() ([]byte, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGrade, int(g))
	}
	return []byte(g.String()), nil
}

func (g *Grade) UnmarshalText(text []byte) error {
	parsed, err := ParseGrade(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ParseGrade accepts a grade name ("again".."easy") or its number ("1".."4").
func ParseGrade(s string) (Grade, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for grade, name := range gradeNames {
		if s == name || s == fmt.Sprint(int(grade)) {
			return grade, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGrade, s)
}

// Stats is the scheduling state of a card.
type Stats struct {
	Ease           float64
	IntervalDays   int
	DueAt          time.Time
	Repetitions    int
	LastReviewedAt *time.Time
}

// NewStats returns the stats of a card created at now: due immediately.
func NewStats(now time.Time) Stats {
	return Stats{
		Ease:         DefaultEase,
		IntervalDays: 1,
		DueAt:        now,
	}
}

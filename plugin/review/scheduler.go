package review

import (
	"fmt"
	"math"
	"time"

	"github.com/hrygo/flashdeck/store"
)

// ComputeNextReview applies one SM-2 step to stats. It is pure: the result depends only
// on its arguments.
func ComputeNextReview(stats Stats, grade Grade, now time.Time) (Stats, error) {
	if !grade.IsValid() {
		return Stats{}, fmt.Errorf("%w: %d", ErrInvalidGrade, int(grade))
	}

	next := Stats{
		Ease:         stats.Ease,
		IntervalDays: stats.IntervalDays,
		Repetitions:  stats.Repetitions,
	}

	if grade == GradeAgain {
		next.Repetitions = 0
		next.IntervalDays = 1
		next.Ease = math.Max(MinEase, stats.Ease-0.2)
	} else {
		next.Repetitions++
		switch next.Repetitions {
		case 1:
			next.IntervalDays = 1
		case 2:
			next.IntervalDays = 6
		default:
			next.IntervalDays = roundDays(float64(stats.IntervalDays) * stats.Ease)
		}

		switch grade {
		case GradeHard:
			next.IntervalDays = max(1, roundDays(float64(next.IntervalDays)*0.8))
			next.Ease = math.Max(MinEase, stats.Ease-0.15)
		case GradeEasy:
			next.IntervalDays = roundDays(float64(next.IntervalDays) * 1.3)
			next.Ease = stats.Ease + 0.15
		}
	}

	// Inputs are clamped, so out-of-range stats never escape.
	next.Ease = math.Max(MinEase, next.Ease)
	next.IntervalDays = max(1, next.IntervalDays)

	reviewed := now
	next.LastReviewedAt = &reviewed
	next.DueAt = now.Add(time.Duration(next.IntervalDays) * day)
	return next, nil
}

func roundDays(v float64) int {
	return int(math.Round(v))
}

// MasteryLevel classifies learning progress from 0 (new) to 5. Conditions are evaluated
// in a fixed order and the first match wins, so the level 3 condition shadows levels 4 and 5.
func MasteryLevel(stats Stats) int {
	switch {
	case stats.Repetitions == 0:
		return 0
	case stats.Repetitions == 1:
		return 1
	case stats.Repetitions == 2:
		return 2
	case stats.IntervalDays >= 7 && stats.Ease >= 2.0:
		return 3
	case stats.IntervalDays >= 21 && stats.Ease >= 2.3:
		return 4
	case stats.IntervalDays >= 60 && stats.Ease >= 2.5:
		return 5
	default:
		return min(stats.Repetitions, 3)
	}
}

// IsDue reports whether a card should be reviewed at now. Cards without stats are always due.
func IsDue(stats *Stats, now time.Time) bool {
	if stats == nil {
		return true
	}
	return !stats.DueAt.After(now)
}

// FromStore converts persisted stats. It returns nil for a card that was never scheduled.
func FromStore(s *store.ReviewStats) *Stats {
	if s == nil {
		return nil
	}
	stats := &Stats{
		Ease:         s.Ease,
		IntervalDays: s.IntervalDays,
		DueAt:        time.UnixMilli(s.DueTs),
		Repetitions:  s.Repetitions,
	}
	if s.LastReviewedTs != nil {
		t := time.UnixMilli(*s.LastReviewedTs)
		stats.LastReviewedAt = &t
	}
	return stats
}

// ToStore converts stats to their persisted form.
func ToStore(s Stats) store.ReviewStats {
	stats := store.ReviewStats{
		Ease:         s.Ease,
		IntervalDays: s.IntervalDays,
		DueTs:        s.DueAt.UnixMilli(),
		Repetitions:  s.Repetitions,
	}
	if s.LastReviewedAt != nil {
		ts := s.LastReviewedAt.UnixMilli()
		stats.LastReviewedTs = &ts
	}
	return stats
}

package study

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/flashdeck/plugin/review"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func cardIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("card-%02d", i)
	}
	return ids
}

func fixedReinsert(index int) ReinsertPolicy {
	return func(remaining int) int { return min(remaining, index) }
}

func good() Outcome  { return Outcome{Grade: review.GradeGood} }
func again() Outcome { return Outcome{Grade: review.GradeAgain} }

func TestCreate(t *testing.T) {
	t.Run("insufficient cards", func(t *testing.T) {
		for _, n := range []int{0, 1} {
			_, err := Create(1, "set", cardIDs(n), ModeAll, GradingSM2, rand.New(rand.NewSource(1)), testNow)
			assert.ErrorIs(t, err, ErrInsufficientCards)
		}
	})

	t.Run("shuffled permutation", func(t *testing.T) {
		ids := cardIDs(20)
		s, err := Create(1, "set", ids, ModeAll, GradingSM2, rand.New(rand.NewSource(7)), testNow)
		require.NoError(t, err)
		assert.ElementsMatch(t, ids, s.Queue)
		assert.NotEqual(t, ids, s.Queue)
		assert.Empty(t, s.MasteredIDs)
		assert.Equal(t, s.Queue[0], s.CurrentCardID)
		assert.Equal(t, PhaseActive, s.Phase())
		// The caller's slice is not reordered.
		assert.Equal(t, cardIDs(20), ids)
	})
}

func TestAnswer_SuccessRetiresCard(t *testing.T) {
	s, err := Create(1, "set", cardIDs(5), ModeAll, GradingSM2, rand.New(rand.NewSource(1)), testNow)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		head, ok := s.CurrentQuestion()
		require.True(t, ok)
		delta, err := s.Answer(good(), fixedReinsert(2))
		require.NoError(t, err)
		assert.Equal(t, head, delta.CardID)
		assert.True(t, delta.Correct)
		assert.Equal(t, -1, delta.InsertIndex)
	}

	assert.Equal(t, PhaseComplete, s.Phase())
	assert.Empty(t, s.Queue)
	assert.Len(t, s.MasteredIDs, 5)
	assert.Equal(t, 5, s.CorrectCount)
	assert.Equal(t, 5, s.QuestionsAnswered)
	_, ok := s.CurrentQuestion()
	assert.False(t, ok)

	_, err = s.Answer(good(), fixedReinsert(2))
	assert.ErrorIs(t, err, ErrSessionComplete)
}

func TestAnswer_MissRequeues(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		s, err := Create(1, "set", cardIDs(8), ModeAll, GradingSM2, rng, testNow)
		require.NoError(t, err)

		missed := s.Queue[0]
		delta, err := s.Answer(again(), RandomReinsert(rng))
		require.NoError(t, err)
		assert.False(t, delta.Correct)

		pos := slices.Index(s.Queue, missed)
		if pos < 2 || pos > 4 {
			t.Fatalf("seed %d: missed card requeued at %d, want 2..4", seed, pos)
		}
		assert.Equal(t, pos, delta.InsertIndex)
		assert.NotContains(t, s.MasteredIDs, missed)
		assert.Len(t, s.Queue, 8)
		assert.Equal(t, 0, s.CorrectCount)
		assert.Equal(t, 1, s.QuestionsAnswered)
	}
}

func TestAnswer_MissNearEndOfQueue(t *testing.T) {
	s, err := Create(1, "set", cardIDs(2), ModeAll, GradingSM2, rand.New(rand.NewSource(3)), testNow)
	require.NoError(t, err)
	first, second := s.Queue[0], s.Queue[1]

	delta, err := s.Answer(again(), RandomReinsert(rand.New(rand.NewSource(3))))
	require.NoError(t, err)
	assert.Equal(t, 1, delta.InsertIndex)
	assert.Equal(t, []string{second, first}, s.Queue)

	_, err = s.Answer(good(), fixedReinsert(2))
	require.NoError(t, err)
	// Only the missed card remains; it comes straight back.
	delta, err = s.Answer(again(), fixedReinsert(4))
	require.NoError(t, err)
	assert.Equal(t, 0, delta.InsertIndex)
	assert.Equal(t, []string{first}, s.Queue)

	_, err = s.Answer(good(), fixedReinsert(2))
	require.NoError(t, err)
	assert.Equal(t, PhaseComplete, s.Phase())
}

func TestAnswer_MissedCardStaysUntilMastered(t *testing.T) {
	s, err := Create(1, "set", cardIDs(6), ModeAll, GradingSM2, rand.New(rand.NewSource(5)), testNow)
	require.NoError(t, err)
	target := s.Queue[0]

	misses := 0
	for s.Phase() != PhaseComplete {
		if s.Phase() == PhaseBatchSummary {
			s.Continue()
		}
		head, _ := s.CurrentQuestion()
		outcome := good()
		if head == target && misses < 3 {
			outcome = again()
			misses++
		}
		_, err := s.Answer(outcome, fixedReinsert(3))
		require.NoError(t, err)
		if head == target && misses <= 3 && !slices.Contains(s.MasteredIDs, target) {
			assert.Contains(t, s.Queue, target)
		}
	}
	assert.Equal(t, 3, misses)
	assert.Contains(t, s.MasteredIDs, target)
	assert.Equal(t, 9, s.QuestionsAnswered)
}

func TestAnswer_InvalidGrade(t *testing.T) {
	s, err := Create(1, "set", cardIDs(3), ModeAll, GradingSM2, rand.New(rand.NewSource(1)), testNow)
	require.NoError(t, err)
	before := s.Clone()

	_, err = s.Answer(Outcome{Grade: 7}, fixedReinsert(2))
	assert.True(t, errors.Is(err, review.ErrInvalidGrade))
	assert.Equal(t, before, s)
}

func TestAnswer_ChoiceGrading(t *testing.T) {
	s, err := Create(1, "set", cardIDs(3), ModeAll, GradingChoice, rand.New(rand.NewSource(1)), testNow)
	require.NoError(t, err)

	// The grade is ignored in multiple choice sessions.
	delta, err := s.Answer(Outcome{Correct: true}, fixedReinsert(2))
	require.NoError(t, err)
	assert.True(t, delta.Correct)

	delta, err = s.Answer(Outcome{Grade: review.GradeEasy, Correct: false}, fixedReinsert(2))
	require.NoError(t, err)
	assert.False(t, delta.Correct)
}

func TestBatchSummary(t *testing.T) {
	s, err := Create(1, "set", cardIDs(12), ModeAll, GradingSM2, rand.New(rand.NewSource(1)), testNow)
	require.NoError(t, err)

	for i := 1; i <= 10; i++ {
		delta, err := s.Answer(good(), fixedReinsert(2))
		require.NoError(t, err)
		if i < 10 {
			assert.Equal(t, PhaseActive, delta.Phase)
		} else {
			assert.Equal(t, PhaseBatchSummary, delta.Phase)
		}
	}

	queue := slices.Clone(s.Queue)
	mastered := slices.Clone(s.MasteredIDs)

	_, err = s.Answer(good(), fixedReinsert(2))
	assert.ErrorIs(t, err, ErrSummaryPending)

	s.Continue()
	assert.Equal(t, PhaseActive, s.Phase())
	assert.Equal(t, queue, s.Queue)
	assert.Equal(t, mastered, s.MasteredIDs)
}

func TestBatchSummary_NotOnCompletion(t *testing.T) {
	s, err := Create(1, "set", cardIDs(10), ModeAll, GradingSM2, rand.New(rand.NewSource(1)), testNow)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := s.Answer(good(), fixedReinsert(2))
		require.NoError(t, err)
	}
	assert.False(t, s.SummaryPending)
	assert.Equal(t, PhaseComplete, s.Phase())
}

func TestResume(t *testing.T) {
	s, err := Create(1, "set", cardIDs(4), ModeDue, GradingSM2, rand.New(rand.NewSource(1)), testNow)
	require.NoError(t, err)
	_, err = s.Answer(again(), fixedReinsert(2))
	require.NoError(t, err)

	tests := []struct {
		name string
		age  time.Duration
		ok   bool
	}{
		{"six days", 6 * 24 * time.Hour, true},
		{"exactly seven days", SessionExpiry, true},
		{"eight days", 8 * 24 * time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := s.Snapshot(testNow.Add(-tt.age))
			resumed, ok := Resume(snapshot, testNow)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, s.Queue, resumed.Queue)
			}
		})
	}

	_, ok := Resume(nil, testNow)
	assert.False(t, ok)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s, err := Create(9, "set", cardIDs(12), ModeStarred, GradingChoice, rand.New(rand.NewSource(2)), testNow)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		outcome := Outcome{Correct: i%3 != 0}
		_, err := s.Answer(outcome, fixedReinsert(2))
		require.NoError(t, err)
	}
	require.True(t, s.SummaryPending)

	savedAt := testNow.Add(time.Hour)
	resumed, ok := Resume(s.Snapshot(savedAt), savedAt)
	require.True(t, ok)

	want := s.Clone()
	want.SavedAt = savedAt
	assert.Equal(t, want.UserID, resumed.UserID)
	assert.Equal(t, want.SetID, resumed.SetID)
	assert.Equal(t, want.Mode, resumed.Mode)
	assert.Equal(t, want.Grading, resumed.Grading)
	assert.Equal(t, want.Queue, resumed.Queue)
	assert.Equal(t, want.MasteredIDs, resumed.MasteredIDs)
	assert.Equal(t, want.CurrentCardID, resumed.CurrentCardID)
	assert.Equal(t, want.QuestionsAnswered, resumed.QuestionsAnswered)
	assert.Equal(t, want.CorrectCount, resumed.CorrectCount)
	assert.Equal(t, want.SummaryPending, resumed.SummaryPending)
	assert.True(t, want.StartedAt.Equal(resumed.StartedAt))
	assert.True(t, want.SavedAt.Equal(resumed.SavedAt))
}

func TestPrune(t *testing.T) {
	s, err := Create(1, "set", cardIDs(4), ModeAll, GradingSM2, rand.New(rand.NewSource(1)), testNow)
	require.NoError(t, err)
	_, err = s.Answer(good(), fixedReinsert(2))
	require.NoError(t, err)

	mastered := s.MasteredIDs[0]
	head := s.Queue[0]
	known := map[string]bool{}
	for _, id := range cardIDs(4) {
		known[id] = id != mastered && id != head
	}

	removed := s.Prune(known)
	assert.Equal(t, 2, removed)
	assert.NotContains(t, s.Queue, head)
	assert.Empty(t, s.MasteredIDs)
	assert.Equal(t, s.Queue[0], s.CurrentCardID)
	assert.Equal(t, 0, s.Prune(known))
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAll, mode)

	mode, err = ParseMode("due")
	require.NoError(t, err)
	assert.Equal(t, ModeDue, mode)

	_, err = ParseMode("random")
	assert.ErrorIs(t, err, ErrInvalidMode)

	grading, err := ParseGrading("choice")
	require.NoError(t, err)
	assert.Equal(t, GradingChoice, grading)

	_, err = ParseGrading("fsrs")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

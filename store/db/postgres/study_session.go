package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hrygo/flashdeck/store"
)

func (d *DB) UpsertStudySession(ctx context.Context, upsert *store.StudySession) (*store.StudySession, error) {
	queue, err := marshalIDs(upsert.Queue)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal queue: %w", err)
	}
	mastered, err := marshalIDs(upsert.MasteredIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mastered ids: %w", err)
	}

	stmt := `INSERT INTO study_session (user_id, set_id, mode, grading, queue, mastered, current_card_id,
			questions_answered, correct_count, summary_pending, started_ts, saved_ts)
		VALUES (` + placeholders(12) + `)
		ON CONFLICT(user_id) DO UPDATE SET
			set_id = EXCLUDED.set_id,
			mode = EXCLUDED.mode,
			grading = EXCLUDED.grading,
			queue = EXCLUDED.queue,
			mastered = EXCLUDED.mastered,
			current_card_id = EXCLUDED.current_card_id,
			questions_answered = EXCLUDED.questions_answered,
			correct_count = EXCLUDED.correct_count,
			summary_pending = EXCLUDED.summary_pending,
			started_ts = EXCLUDED.started_ts,
			saved_ts = EXCLUDED.saved_ts`
	_, err = d.db.ExecContext(ctx, stmt,
		upsert.UserID, upsert.SetID, upsert.Mode, upsert.Grading, queue, mastered, upsert.CurrentCardID,
		upsert.QuestionsAnswered, upsert.CorrectCount, upsert.SummaryPending, upsert.StartedTs, upsert.SavedTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert study_session: %w", err)
	}
	return upsert, nil
}

func (d *DB) GetStudySession(ctx context.Context, find *store.FindStudySession) (*store.StudySession, error) {
	query := `SELECT user_id, set_id, mode, grading, queue, mastered, current_card_id,
			questions_answered, correct_count, summary_pending, started_ts, saved_ts
		FROM study_session WHERE user_id = $1`
	s := &store.StudySession{}
	var queue, mastered string
	err := d.db.QueryRowContext(ctx, query, find.UserID).Scan(
		&s.UserID, &s.SetID, &s.Mode, &s.Grading, &queue, &mastered, &s.CurrentCardID,
		&s.QuestionsAnswered, &s.CorrectCount, &s.SummaryPending, &s.StartedTs, &s.SavedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get study_session: %w", err)
	}
	if s.Queue, err = unmarshalIDs(queue); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue: %w", err)
	}
	if s.MasteredIDs, err = unmarshalIDs(mastered); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mastered ids: %w", err)
	}
	return s, nil
}

func (d *DB) DeleteStudySession(ctx context.Context, delete *store.DeleteStudySession) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM study_session WHERE user_id = $1`, delete.UserID); err != nil {
		return fmt.Errorf("failed to delete study_session: %w", err)
	}
	return nil
}

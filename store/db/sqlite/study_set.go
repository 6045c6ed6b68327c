package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/flashdeck/store"
)

func (d *DB) CreateStudySet(ctx context.Context, create *store.StudySet) (*store.StudySet, error) {
	fields := []string{"id", "user_id", "name", "created_ts"}
	args := []any{create.ID, create.UserID, create.Name, create.CreatedTs}
	stmt := `INSERT INTO study_set (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to create study_set: %w", err)
	}
	return create, nil
}

func (d *DB) ListStudySets(ctx context.Context, find *store.FindStudySet) ([]*store.StudySet, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}

	query := `SELECT id, user_id, name, created_ts FROM study_set WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts ASC, id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list study_sets: %w", err)
	}
	defer rows.Close()

	list := make([]*store.StudySet, 0)
	for rows.Next() {
		s := &store.StudySet{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan study_set: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study_sets: %w", err)
	}
	return list, nil
}

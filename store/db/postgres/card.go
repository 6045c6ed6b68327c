package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/flashdeck/store"
)

const cardColumns = `id, set_id, position, term, definition, starred, ease, interval_days, due_ts, repetitions, last_reviewed_ts, mastery_count, created_ts, updated_ts`

func (d *DB) CreateCard(ctx context.Context, create *store.Card) (*store.Card, error) {
	args := []any{create.ID, create.SetID, create.Position, create.Term, create.Definition, create.Starred}
	args = append(args, statsArgs(create.Stats)...)
	args = append(args, create.MasteryCount, create.CreatedTs, create.UpdatedTs)

	stmt := `INSERT INTO card (` + cardColumns + `) VALUES (` + placeholders(len(args)) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}
	return create, nil
}

func (d *DB) ListCards(ctx context.Context, find *store.FindCard) ([]*store.Card, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.SetID != nil {
		where, args = append(where, "set_id = "+placeholder(len(args)+1)), append(args, *find.SetID)
	}
	if find.Starred != nil {
		where, args = append(where, "starred = "+placeholder(len(args)+1)), append(args, *find.Starred)
	}

	query := `SELECT ` + cardColumns + ` FROM card WHERE ` + strings.Join(where, " AND ") + ` ORDER BY set_id ASC, position ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cards: %w", err)
	}
	return list, nil
}

func (d *DB) UpdateCard(ctx context.Context, update *store.UpdateCard) (*store.Card, error) {
	set, args := []string{}, []any{}
	if update.Term != nil {
		set, args = append(set, "term = "+placeholder(len(args)+1)), append(args, *update.Term)
	}
	if update.Definition != nil {
		set, args = append(set, "definition = "+placeholder(len(args)+1)), append(args, *update.Definition)
	}
	if update.Starred != nil {
		set, args = append(set, "starred = "+placeholder(len(args)+1)), append(args, *update.Starred)
	}
	if update.Stats != nil {
		values := statsArgs(update.Stats)
		for i, column := range []string{"ease", "interval_days", "due_ts", "repetitions", "last_reviewed_ts"} {
			set, args = append(set, column+" = "+placeholder(len(args)+1)), append(args, values[i])
		}
	}
	if update.MasteryCount != nil {
		set, args = append(set, "mastery_count = "+placeholder(len(args)+1)), append(args, *update.MasteryCount)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, update.UpdatedTs)

	args = append(args, update.ID, update.SetID)
	stmt := `UPDATE card SET ` + strings.Join(set, ", ") +
		` WHERE id = ` + placeholder(len(args)-1) + ` AND set_id = ` + placeholder(len(args)) +
		` RETURNING ` + cardColumns
	card, err := scanCard(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return card, nil
}

func (d *DB) DeleteCard(ctx context.Context, delete *store.DeleteCard) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM card WHERE id = $1 AND set_id = $2`, delete.ID, delete.SetID)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("card not found")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(row scanner) (*store.Card, error) {
	card := &store.Card{}
	stats := &nullableStats{}
	if err := row.Scan(
		&card.ID, &card.SetID, &card.Position, &card.Term, &card.Definition, &card.Starred,
		&stats.ease, &stats.intervalDays, &stats.dueTs, &stats.repetitions, &stats.lastReviewedTs,
		&card.MasteryCount, &card.CreatedTs, &card.UpdatedTs,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan card: %w", err)
	}
	card.Stats = stats.toStats()
	return card, nil
}

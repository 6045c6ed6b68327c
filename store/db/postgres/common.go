package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hrygo/flashdeck/store"
)

// placeholder returns a numbered placeholder for PostgreSQL ($1, $2, ...).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

func marshalIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalIDs(raw string) ([]string, error) {
	ids := []string{}
	if raw == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

type nullableStats struct {
	ease           sql.NullFloat64
	intervalDays   sql.NullInt64
	dueTs          sql.NullInt64
	repetitions    sql.NullInt64
	lastReviewedTs sql.NullInt64
}

func (n *nullableStats) toStats() *store.ReviewStats {
	if !n.ease.Valid {
		return nil
	}
	stats := &store.ReviewStats{
		Ease:         n.ease.Float64,
		IntervalDays: int(n.intervalDays.Int64),
		DueTs:        n.dueTs.Int64,
		Repetitions:  int(n.repetitions.Int64),
	}
	if n.lastReviewedTs.Valid {
		ts := n.lastReviewedTs.Int64
		stats.LastReviewedTs = &ts
	}
	return stats
}

func statsArgs(stats *store.ReviewStats) []any {
	if stats == nil {
		return []any{nil, nil, nil, nil, nil}
	}
	var last any
	if stats.LastReviewedTs != nil {
		last = *stats.LastReviewedTs
	}
	return []any{stats.Ease, stats.IntervalDays, stats.DueTs, stats.Repetitions, last}
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hrygo/flashdeck/store"
)

func (d *DB) GetAudioEntry(ctx context.Context, key string) (*store.AudioEntry, error) {
	entry := &store.AudioEntry{}
	err := d.db.QueryRowContext(ctx, `SELECT key, blob, size, accessed_ts FROM audio_entry WHERE key = ?`, key).
		Scan(&entry.Key, &entry.Blob, &entry.Size, &entry.AccessedTs)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get audio_entry: %w", err)
	}
	return entry, nil
}

// UpsertAudioEntry stores a clip. Replacing an existing key keeps its insertion order.
func (d *DB) UpsertAudioEntry(ctx context.Context, upsert *store.AudioEntry) error {
	stmt := `INSERT INTO audio_entry (key, blob, size, accessed_ts) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET blob = EXCLUDED.blob, size = EXCLUDED.size, accessed_ts = EXCLUDED.accessed_ts`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.Key, upsert.Blob, upsert.Size, upsert.AccessedTs); err != nil {
		return fmt.Errorf("failed to upsert audio_entry: %w", err)
	}
	return nil
}

func (d *DB) TouchAudioEntry(ctx context.Context, key string, accessedTs int64) error {
	if _, err := d.db.ExecContext(ctx, `UPDATE audio_entry SET accessed_ts = ? WHERE key = ?`, accessedTs, key); err != nil {
		return fmt.Errorf("failed to touch audio_entry: %w", err)
	}
	return nil
}

func (d *DB) DeleteAudioEntry(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM audio_entry WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete audio_entry: %w", err)
	}
	return nil
}

// ListAudioEntries returns all entries without blobs, least recently accessed first.
func (d *DB) ListAudioEntries(ctx context.Context) ([]*store.AudioEntry, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT key, size, accessed_ts FROM audio_entry ORDER BY accessed_ts ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio_entries: %w", err)
	}
	defer rows.Close()

	list := make([]*store.AudioEntry, 0)
	for rows.Next() {
		entry := &store.AudioEntry{}
		if err := rows.Scan(&entry.Key, &entry.Size, &entry.AccessedTs); err != nil {
			return nil, fmt.Errorf("failed to scan audio_entry: %w", err)
		}
		list = append(list, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audio_entries: %w", err)
	}
	return list, nil
}

func (d *DB) ClearAudioEntries(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM audio_entry`); err != nil {
		return fmt.Errorf("failed to clear audio_entries: %w", err)
	}
	return nil
}

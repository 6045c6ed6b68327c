package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hrygo/flashdeck/store"
)

func (d *DB) UpsertSystemSetting(ctx context.Context, upsert *store.SystemSetting) (*store.SystemSetting, error) {
	stmt := `INSERT INTO system_setting (name, value) VALUES ($1, $2)
		ON CONFLICT(name) DO UPDATE SET value = EXCLUDED.value`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.Name, upsert.Value); err != nil {
		return nil, fmt.Errorf("failed to upsert system_setting: %w", err)
	}
	return upsert, nil
}

func (d *DB) GetSystemSetting(ctx context.Context, name string) (*store.SystemSetting, error) {
	setting := &store.SystemSetting{}
	err := d.db.QueryRowContext(ctx, `SELECT name, value FROM system_setting WHERE name = $1`, name).Scan(&setting.Name, &setting.Value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get system_setting: %w", err)
	}
	return setting, nil
}

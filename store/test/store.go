package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hrygo/flashdeck/internal/profile"
	"github.com/hrygo/flashdeck/internal/version"
	"github.com/hrygo/flashdeck/store"
	"github.com/hrygo/flashdeck/store/db"
)

// NewTestingStore opens a migrated store for the driver named by the DRIVER environment
// variable. SQLite (the default) uses a fresh file per test; PostgreSQL needs POSTGRES_TEST_DSN.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	profile := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(profile)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	t.Cleanup(func() {
		dbDriver.Close()
	})

	ts := store.New(dbDriver, profile)
	if profile.Driver == "postgres" {
		resetPostgres(ctx, t, dbDriver)
	}
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	return ts
}

func getTestingProfile(t *testing.T) *profile.Profile {
	t.Helper()

	driver := getDriverFromEnv()
	dir := t.TempDir()
	p := &profile.Profile{
		Mode:    "dev",
		Data:    dir,
		Driver:  driver,
		Version: version.GetCurrentVersion("dev"),
	}
	switch driver {
	case "sqlite":
		p.DSN = filepath.Join(dir, "flashdeck_test.db")
	case "postgres":
		dsn := os.Getenv("POSTGRES_TEST_DSN")
		if dsn == "" {
			t.Skip("POSTGRES_TEST_DSN is not set")
		}
		p.DSN = dsn
	default:
		t.Fatalf("unsupported test driver %q", driver)
	}
	return p
}

func getDriverFromEnv() string {
	if driver := os.Getenv("DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}

// resetPostgres drops the tables of a shared test database so every test migrates from scratch.
func resetPostgres(ctx context.Context, t *testing.T, driver store.Driver) {
	t.Helper()
	for _, table := range []string{"audio_entry", "study_session", "card", "study_set", "system_setting"} {
		if _, err := driver.GetDB().ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			t.Fatalf("failed to drop %s: %v", table, err)
		}
	}
}

package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/flashdeck/internal/version"
)

// Migration files live in migration/{driver}/. LATEST.sql holds the full schema for new
// installations; incremental scripts go to migration/{driver}/{minor}/NN__description.sql
// and are applied in lexical order when the stored schema version is older than the
// running version. The schema version is kept in the system_setting table.

//go:embed migration
var migrationFS embed.FS

const (
	// MigrateFileNameSplit is the split character between the patch version and the description in the migration file name.
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName is the name of the latest schema file.
	LatestSchemaFileName = "LATEST.sql"

	defaultSchemaVersion = "0.0.0"
)

// Migrate brings the database schema to the running version.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.preMigrate(ctx); err != nil {
		return errors.Wrap(err, "failed to pre-migrate")
	}

	stored, err := s.getStoredSchemaVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get stored schema version")
	}
	current := s.GetCurrentSchemaVersion()

	if version.IsVersionGreaterThan(stored, current) {
		slog.Error("cannot downgrade schema version",
			slog.String("databaseVersion", stored),
			slog.String("currentVersion", current),
		)
		return errors.Errorf("cannot downgrade schema version from %s to %s", stored, current)
	}
	if version.IsVersionGreaterThan(current, stored) {
		if err := s.applyMigrations(ctx, stored, current); err != nil {
			return errors.Wrap(err, "failed to apply migrations")
		}
	}
	return nil
}

// GetCurrentSchemaVersion returns the schema version of the running binary.
func (s *Store) GetCurrentSchemaVersion() string {
	return version.GetCurrentVersion(s.profile.Mode)
}

func (s *Store) preMigrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return nil
	}

	filePath := s.getMigrationBasePath() + LatestSchemaFileName
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Errorf("failed to read latest schema file: %s", err)
	}
	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("initializing new database with latest schema", slog.String("file", filePath))
	if err := s.execute(ctx, tx, string(bytes)); err != nil {
		return errors.Errorf("failed to execute SQL file %s, err %s", filePath, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	schemaVersion := s.GetCurrentSchemaVersion()
	slog.Info("database initialized successfully", slog.String("schemaVersion", schemaVersion))
	return s.updateCurrentSchemaVersion(ctx, schemaVersion)
}

func (s *Store) applyMigrations(ctx context.Context, currentSchemaVersion, targetSchemaVersion string) error {
	filePaths, err := fs.Glob(migrationFS, fmt.Sprintf("%s*/*.sql", s.getMigrationBasePath()))
	if err != nil {
		return errors.Wrap(err, "failed to read migration files")
	}
	sort.Strings(filePaths)

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("start migration",
		slog.String("currentSchemaVersion", currentSchemaVersion),
		slog.String("targetSchemaVersion", targetSchemaVersion))

	applied := 0
	for _, filePath := range filePaths {
		fileSchemaVersion, err := schemaVersionOfMigrateScript(filePath)
		if err != nil {
			return errors.Wrap(err, "failed to get schema version of migrate script")
		}
		if !version.IsVersionGreaterThan(fileSchemaVersion, currentSchemaVersion) ||
			!version.IsVersionGreaterOrEqualThan(targetSchemaVersion, fileSchemaVersion) {
			continue
		}

		slog.Info("applying migration", slog.String("file", filePath), slog.String("version", fileSchemaVersion))
		bytes, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file: %s", filePath)
		}
		if err := s.execute(ctx, tx, string(bytes)); err != nil {
			return errors.Wrapf(err, "failed to execute migration %s", filePath)
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration transaction")
	}
	slog.Info("migration completed", slog.Int("migrationsApplied", applied))

	return s.updateCurrentSchemaVersion(ctx, targetSchemaVersion)
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

func (s *Store) getStoredSchemaVersion(ctx context.Context) (string, error) {
	setting, err := s.driver.GetSystemSetting(ctx, SystemSettingSchemaVersion)
	if err != nil {
		return "", err
	}
	if setting == nil || setting.Value == "" {
		return defaultSchemaVersion, nil
	}
	return setting.Value, nil
}

func (s *Store) updateCurrentSchemaVersion(ctx context.Context, schemaVersion string) error {
	_, err := s.driver.UpsertSystemSetting(ctx, &SystemSetting{
		Name:  SystemSettingSchemaVersion,
		Value: schemaVersion,
	})
	return errors.Wrap(err, "failed to upsert schema version")
}

// schemaVersionOfMigrateScript turns migration/{driver}/{minor}/NN__name.sql into "{minor}.{NN+1}".
func schemaVersionOfMigrateScript(filePath string) (string, error) {
	elements := strings.Split(filepath.ToSlash(filePath), "/")
	if len(elements) < 2 {
		return "", errors.Errorf("invalid file path: %s", filePath)
	}
	minorVersion := elements[len(elements)-2]
	rawPatchVersion := strings.Split(elements[len(elements)-1], MigrateFileNameSplit)[0]
	patchVersion, err := strconv.Atoi(rawPatchVersion)
	if err != nil {
		return "", errors.Wrapf(err, "failed to convert patch version to int: %s", rawPatchVersion)
	}
	return fmt.Sprintf("%s.%d", minorVersion, patchVersion+1), nil
}

// execute runs a SQL script inside tx. PostgreSQL does not accept several statements in a
// single ExecContext call, so scripts are split on statement terminators first.
func (s *Store) execute(ctx context.Context, tx *sql.Tx, script string) error {
	if s.profile.Driver != "postgres" {
		if _, err := tx.ExecContext(ctx, script); err != nil {
			return errors.Wrap(err, "failed to execute statement")
		}
		return nil
	}
	for i, stmt := range splitSQL(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d: %s", i+1, stmt)
		}
	}
	return nil
}

// splitSQL splits a script on ';' line endings, skipping comment lines.
// Schema files do not use dollar-quoted bodies.
func splitSQL(script string) []string {
	var statements []string
	var current strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}

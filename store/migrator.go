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

	"github.com/hrygo/rivalchat/internal/version"
)

// Migration flow:
// 1. preMigrate: if the backend is not initialized, apply LATEST.sql (SQL drivers) and record the schema version.
// 2. Migrate (prod mode): apply incremental files between the recorded and the current schema version.
//
// The schema version lives under the system:schema_version key next to the conversation documents.
// Migration files: store/migration/{driver}/{minor}/NN__description.sql, applied in lexicographic order.
// Key-value drivers (redis, memory) have no schema; only the version is recorded.

//go:embed migration
var migrationFS embed.FS

const (
	// MigrateFileNameSplit is the split character between the patch version and the description in the migration file name.
	// For example, "1__create_table.sql".
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName is the full schema for fresh installations.
	LatestSchemaFileName = "LATEST.sql"

	defaultSchemaVersion = "0.0.0"

	modeProd = "prod"
)

func getSchemaVersionOrDefault(schemaVersion string) string {
	if schemaVersion == "" {
		return defaultSchemaVersion
	}
	return schemaVersion
}

// shouldApplyMigration reports whether fileVersion lies in (current, target].
func shouldApplyMigration(fileVersion, currentDBVersion, targetVersion string) bool {
	return version.IsVersionGreaterThan(fileVersion, getSchemaVersionOrDefault(currentDBVersion)) &&
		version.IsVersionGreaterOrEqualThan(targetVersion, fileVersion)
}

// validateMigrationFileName checks the "NN__description.sql" convention.
func validateMigrationFileName(filename string) error {
	parts := strings.SplitN(filename, MigrateFileNameSplit, 2)
	if len(parts) < 2 {
		return errors.Errorf("invalid migration filename format (missing %s): %s", MigrateFileNameSplit, filename)
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return errors.Errorf("migration filename must start with a number: %s", filename)
	}
	return nil
}

// Migrate brings the backend schema to the version of the running binary.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.preMigrate(ctx); err != nil {
		return errors.Wrap(err, "failed to pre-migrate")
	}
	if s.profile == nil || s.profile.Mode != modeProd {
		return nil
	}

	dbSchemaVersion, err := s.GetSchemaVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get schema version")
	}
	currentSchemaVersion, err := s.GetCurrentSchemaVersion()
	if err != nil {
		return errors.Wrap(err, "failed to get current schema version")
	}
	if dbSchemaVersion != "" && version.IsVersionGreaterThan(dbSchemaVersion, currentSchemaVersion) {
		slog.Error("cannot downgrade schema version",
			slog.String("databaseVersion", dbSchemaVersion),
			slog.String("currentVersion", currentSchemaVersion),
		)
		return errors.Errorf("cannot downgrade schema version from %s to %s", dbSchemaVersion, currentSchemaVersion)
	}
	if dbSchemaVersion == "" || version.IsVersionGreaterThan(currentSchemaVersion, dbSchemaVersion) {
		if err := s.applyMigrations(ctx, dbSchemaVersion, currentSchemaVersion); err != nil {
			return errors.Wrap(err, "failed to apply migrations")
		}
	}
	return nil
}

// applyMigrations runs every migration file between current and target in a single transaction.
func (s *Store) applyMigrations(ctx context.Context, currentSchemaVersion, targetSchemaVersion string) error {
	sqlDriver, ok := s.driver.(SQLDriver)
	if !ok {
		return s.updateSchemaVersion(ctx, targetSchemaVersion)
	}

	filePaths, err := fs.Glob(migrationFS, fmt.Sprintf("%s*/*.sql", migrationBasePath(sqlDriver)))
	if err != nil {
		return errors.Wrap(err, "failed to read migration files")
	}
	sort.Strings(filePaths)

	tx, err := sqlDriver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("start migration",
		slog.String("currentSchemaVersion", getSchemaVersionOrDefault(currentSchemaVersion)),
		slog.String("targetSchemaVersion", targetSchemaVersion))

	migrationsApplied := 0
	for _, filePath := range filePaths {
		fileSchemaVersion, err := s.getSchemaVersionOfMigrateScript(filePath)
		if err != nil {
			return errors.Wrap(err, "failed to get schema version of migrate script")
		}
		if !shouldApplyMigration(fileSchemaVersion, currentSchemaVersion, targetSchemaVersion) {
			continue
		}
		if err := validateMigrationFileName(filepath.Base(filePath)); err != nil {
			slog.Warn("migration file has invalid name but will be applied", slog.String("file", filePath), slog.String("error", err.Error()))
		}

		slog.Info("applying migration", slog.String("file", filePath), slog.String("version", fileSchemaVersion))
		bytes, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file: %s", filePath)
		}
		if err := execute(ctx, tx, sqlDriver.Name(), string(bytes)); err != nil {
			return errors.Wrapf(err, "failed to execute migration %s", filePath)
		}
		migrationsApplied++
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration transaction")
	}
	slog.Info("migration completed", slog.Int("migrationsApplied", migrationsApplied))

	return s.updateSchemaVersion(ctx, targetSchemaVersion)
}

// preMigrate applies the latest schema to an uninitialized backend.
func (s *Store) preMigrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return nil
	}

	if sqlDriver, ok := s.driver.(SQLDriver); ok {
		filePath := migrationBasePath(sqlDriver) + LatestSchemaFileName
		bytes, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrap(err, "failed to read latest schema file")
		}
		tx, err := sqlDriver.GetDB().BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "failed to start transaction")
		}
		defer tx.Rollback()
		slog.Info("initializing new database with latest schema", slog.String("file", filePath))
		if err := execute(ctx, tx, sqlDriver.Name(), string(bytes)); err != nil {
			return errors.Wrapf(err, "failed to execute SQL file %s", filePath)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrap(err, "failed to commit transaction")
		}
	}

	schemaVersion, err := s.GetCurrentSchemaVersion()
	if err != nil {
		return errors.Wrap(err, "failed to get current schema version")
	}
	slog.Info("store initialized", slog.String("schemaVersion", schemaVersion))
	return s.updateSchemaVersion(ctx, schemaVersion)
}

func migrationBasePath(driver SQLDriver) string {
	return fmt.Sprintf("migration/%s/", driver.Name())
}

// GetCurrentSchemaVersion returns the schema version the running binary expects.
func (s *Store) GetCurrentSchemaVersion() (string, error) {
	mode := ""
	if s.profile != nil {
		mode = s.profile.Mode
	}
	minorVersion := version.GetMinorVersion(version.GetCurrentVersion(mode))

	sqlDriver, ok := s.driver.(SQLDriver)
	if !ok {
		return fmt.Sprintf("%s.0", minorVersion), nil
	}
	filePaths, err := fs.Glob(migrationFS, fmt.Sprintf("%s%s/*.sql", migrationBasePath(sqlDriver), minorVersion))
	if err != nil {
		return "", errors.Wrap(err, "failed to read migration files")
	}
	sort.Strings(filePaths)
	if len(filePaths) == 0 {
		return fmt.Sprintf("%s.0", minorVersion), nil
	}
	return s.getSchemaVersionOfMigrateScript(filePaths[len(filePaths)-1])
}

// getSchemaVersionOfMigrateScript maps ".../0.2/00__x.sql" to "0.2.1".
func (s *Store) getSchemaVersionOfMigrateScript(filePath string) (string, error) {
	if strings.HasSuffix(filePath, LatestSchemaFileName) {
		return s.GetCurrentSchemaVersion()
	}

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

// GetSchemaVersion returns the recorded schema version, empty when none is recorded.
func (s *Store) GetSchemaVersion(ctx context.Context) (string, error) {
	var schemaVersion string
	if _, err := s.getJSON(ctx, KeySchemaVersion, &schemaVersion); err != nil {
		return "", err
	}
	return schemaVersion, nil
}

func (s *Store) updateSchemaVersion(ctx context.Context, schemaVersion string) error {
	if err := s.setJSON(ctx, KeySchemaVersion, schemaVersion); err != nil {
		return errors.Wrap(err, "failed to update schema version")
	}
	return nil
}

// execute runs a migration script. PostgreSQL rejects multiple statements per Exec, so scripts are split.
func execute(ctx context.Context, tx *sql.Tx, driverName, script string) error {
	if driverName != "postgres" {
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

// splitSQL splits a script on semicolons outside single-quoted strings, dropping "--" comments.
func splitSQL(script string) []string {
	var statements []string
	var current strings.Builder
	inQuote := false

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(script, "\n") {
		for i := 0; i < len(line); i++ {
			ch := line[i]
			if !inQuote && ch == '-' && i+1 < len(line) && line[i+1] == '-' {
				break
			}
			if ch == '\'' {
				inQuote = !inQuote
			}
			current.WriteByte(ch)
			if ch == ';' && !inQuote {
				flush()
			}
		}
		current.WriteByte('\n')
	}
	flush()
	return statements
}

package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// newMigrator creates a migrate instance from an existing database connection.
//
// IMPORTANT: The returned migrator takes ownership of the connection's
// lifecycle. Calling migrator.Close() will close the underlying database
// connection. Callers that need the connection afterwards should open a
// dedicated connection for migration (see MigrateUpFromPath).
//
// migrationsPath should be a file:// URL, e.g. "file://db/migrations".
func newMigrator(db *sql.DB, migrationsPath string) (*migrate.Migrate, error) {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

// MigrateUp applies all pending migrations to the given connection.
//
// NOTE: This closes the connection when done. Use MigrateUpFromPath when the
// database should remain usable afterwards.
func MigrateUp(db *sql.DB, migrationsPath string) error {
	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	return nil
}

// MigrateDown rolls back all migrations on the given connection.
//
// NOTE: This closes the connection when done.
func MigrateDown(db *sql.DB, migrationsPath string) error {
	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}

	return nil
}

// GetMigrationVersion returns the current schema version of the given
// connection. Returns version 0 and dirty=false for an unmigrated database.
//
// NOTE: This closes the connection when done. Use GetMigrationVersionFromPath
// when the database should remain usable afterwards.
func GetMigrationVersion(db *sql.DB, migrationsPath string) (version uint, dirty bool, err error) {
	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err = m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

// MigrateUpFromPath opens a dedicated connection, applies all pending
// migrations, and closes it. The database file at path is created if it does
// not exist.
//
// This is the safe way to migrate before opening a long-lived connection,
// because the migrator owns and closes whatever connection it is given.
func MigrateUpFromPath(dbPath, migrationsPath string) error {
	db, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database for migration: %w", err)
	}
	// MigrateUp closes the connection via the migrator.
	return MigrateUp(db, migrationsPath)
}

// GetMigrationVersionFromPath opens a dedicated connection, reads the schema
// version, and closes it.
func GetMigrationVersionFromPath(dbPath, migrationsPath string) (version uint, dirty bool, err error) {
	db, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return 0, false, fmt.Errorf("failed to open database: %w", err)
	}
	// GetMigrationVersion closes the connection via the migrator.
	return GetMigrationVersion(db, migrationsPath)
}

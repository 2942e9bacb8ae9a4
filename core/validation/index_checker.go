package validation

import (
	"fmt"

	"pixelforge/db"
)

// IndexChecker validates the artifact index database: it must open with the
// expected pragmas, accept pending schema migrations, and report a clean
// migration version.
type IndexChecker struct {
	dbPath         string
	migrationsPath string
}

// NewIndexChecker creates an IndexChecker for the database at dbPath using
// the default migrations location.
func NewIndexChecker(dbPath string) *IndexChecker {
	return &IndexChecker{
		dbPath:         dbPath,
		migrationsPath: db.DefaultDatabaseConfig(dbPath).MigrationsPath,
	}
}

// WithMigrationsPath overrides the migration source (file:// URL).
func (c *IndexChecker) WithMigrationsPath(path string) *IndexChecker {
	c.migrationsPath = path
	return c
}

// Check opens the index database, applies pending migrations, and reports
// the resulting schema version. The connection is closed before returning;
// the check proves the database works, it does not keep it open.
func (c *IndexChecker) Check() ValidationResult {
	database, err := db.NewDatabaseWithConfig(db.DatabaseConfig{
		Path:           c.dbPath,
		MigrationsPath: c.migrationsPath,
	})
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Cannot open index database: " + c.dbPath,
			Error:   err,
		}
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Index schema migration failed",
			Error:   err,
		}
	}

	version, dirty, err := db.GetMigrationVersionFromPath(c.dbPath, c.migrationsPath)
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Cannot read index schema version",
			Error:   err,
		}
	}
	if dirty {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("Index schema version %d is dirty", version),
			Error:   fmt.Errorf("index schema version %d is marked dirty; restore from backup or force the version", version),
		}
	}

	return ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("Schema version %d at %s", version, c.dbPath),
	}
}

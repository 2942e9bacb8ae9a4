package db

import (
	"os"
	"path/filepath"
	"testing"
)

// TestNewDatabase tests the Database factory function.
func TestNewDatabase(t *testing.T) {
	t.Run("creates database with valid path", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "artifacts.db")

		db, err := NewDatabase(dbPath)
		if err != nil {
			t.Fatalf("NewDatabase() error = %v", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %v, want %v", db.Path(), dbPath)
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Errorf("Database file was not created at %s", dbPath)
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "data", "index", "artifacts.db")

		db, err := NewDatabase(dbPath)
		if err != nil {
			t.Fatalf("NewDatabase() error = %v", err)
		}
		defer db.Close()

		parentDir := filepath.Dir(dbPath)
		if _, err := os.Stat(parentDir); os.IsNotExist(err) {
			t.Errorf("Parent directory was not created at %s", parentDir)
		}
	})

	t.Run("returns error for empty path", func(t *testing.T) {
		if _, err := NewDatabase(""); err == nil {
			t.Error("NewDatabase() expected error for empty path, got nil")
		}
	})
}

// TestDatabaseMigrate applies the shipped artifact migrations through the
// organism. Test binaries run in the package directory, so the migrations
// live at ./migrations.
func TestDatabaseMigrate(t *testing.T) {
	db, err := NewDatabaseWithConfig(DatabaseConfig{
		Path:           filepath.Join(t.TempDir(), "artifacts.db"),
		MigrationsPath: "file://migrations",
	})
	if err != nil {
		t.Fatalf("NewDatabaseWithConfig() error = %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// Migrate is idempotent
	if err := db.Migrate(); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}

	var name string
	err = db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='artifacts'",
	).Scan(&name)
	if err != nil {
		t.Fatalf("artifacts table missing after Migrate(): %v", err)
	}
}

// TestDatabaseClose tests the Close method.
func TestDatabaseClose(t *testing.T) {
	t.Run("closes database connection", func(t *testing.T) {
		db, err := NewDatabase(filepath.Join(t.TempDir(), "artifacts.db"))
		if err != nil {
			t.Fatalf("NewDatabase() error = %v", err)
		}

		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}

		// Ping should fail after close
		if err := db.Ping(); err == nil {
			t.Error("Ping() should fail after Close()")
		}
	})

	t.Run("close is idempotent", func(t *testing.T) {
		db, err := NewDatabase(filepath.Join(t.TempDir(), "artifacts.db"))
		if err != nil {
			t.Fatalf("NewDatabase() error = %v", err)
		}

		if err := db.Close(); err != nil {
			t.Errorf("First Close() error = %v", err)
		}
		if err := db.Close(); err != nil {
			t.Errorf("Second Close() error = %v", err)
		}
	})
}

// TestDatabaseDB tests the DB accessor.
func TestDatabaseDB(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "artifacts.db"))
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	defer db.Close()

	conn := db.DB()
	if conn == nil {
		t.Fatal("DB() returned nil")
	}

	var result int
	if err := conn.QueryRow("SELECT 1").Scan(&result); err != nil {
		t.Errorf("QueryRow() error = %v", err)
	}
	if result != 1 {
		t.Errorf("Query result = %v, want 1", result)
	}
}

// TestDatabaseWALMode tests that the organism opens its connection in WAL mode.
func TestDatabaseWALMode(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "artifacts.db"))
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	defer db.Close()

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %v, want 'wal'", journalMode)
	}
}

// TestDatabaseExecAndQuery tests the convenience wrappers together.
func TestDatabaseExecAndQuery(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "artifacts.db"))
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE blobs (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("Exec() CREATE TABLE error = %v", err)
	}

	result, err := db.Exec("INSERT INTO blobs (name) VALUES (?), (?)", "a.png", "b.png")
	if err != nil {
		t.Fatalf("Exec() INSERT error = %v", err)
	}
	if affected, err := result.RowsAffected(); err != nil || affected != 2 {
		t.Errorf("RowsAffected() = %v, %v, want 2, nil", affected, err)
	}

	rows, err := db.Query("SELECT name FROM blobs ORDER BY name")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows.Err() = %v", err)
	}

	if len(names) != 2 || names[0] != "a.png" || names[1] != "b.png" {
		t.Errorf("Query results = %v, want [a.png b.png]", names)
	}
}

// TestDatabaseClosedOperations verifies wrappers fail cleanly after Close.
func TestDatabaseClosedOperations(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "artifacts.db"))
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := db.Exec("SELECT 1"); err == nil {
		t.Error("Exec() should fail on closed database")
	}
	if _, err := db.Query("SELECT 1"); err == nil {
		t.Error("Query() should fail on closed database")
	}
}

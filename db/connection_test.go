package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConnectionConfig verifies default configuration values.
func TestDefaultConnectionConfig(t *testing.T) {
	path := "/test/artifacts.db"
	config := DefaultConnectionConfig(path)

	if config.Path != path {
		t.Errorf("Path = %q, want %q", config.Path, path)
	}
	if config.BusyTimeout != 5000 {
		t.Errorf("BusyTimeout = %d, want 5000", config.BusyTimeout)
	}
	if config.MaxOpenConns != 1 {
		t.Errorf("MaxOpenConns = %d, want 1", config.MaxOpenConns)
	}
	if config.MaxIdleConns != 1 {
		t.Errorf("MaxIdleConns = %d, want 1", config.MaxIdleConns)
	}
	if config.ConnMaxLifetime != 0 {
		t.Errorf("ConnMaxLifetime = %v, want 0", config.ConnMaxLifetime)
	}
}

// TestNewSQLiteConnection_EmptyPath verifies error on empty path.
func TestNewSQLiteConnection_EmptyPath(t *testing.T) {
	db, err := NewSQLiteConnection(ConnectionConfig{Path: ""})
	if err == nil {
		db.Close()
		t.Fatal("expected error for empty path, got nil")
	}
	if db != nil {
		t.Error("expected nil db for empty path")
	}
}

// TestNewSQLiteConnection_CreatesDatabase verifies database file creation.
func TestNewSQLiteConnection_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")

	db, err := NewSQLiteConnection(DefaultConnectionConfig(dbPath))
	if err != nil {
		t.Fatalf("NewSQLiteConnection() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

// TestNewSQLiteConnection_Pragmas verifies WAL mode and foreign keys are
// enabled on a fresh connection.
func TestNewSQLiteConnection_Pragmas(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")

	db, err := NewSQLiteConnection(DefaultConnectionConfig(dbPath))
	if err != nil {
		t.Fatalf("NewSQLiteConnection() error = %v", err)
	}
	defer db.Close()

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want %q", journalMode, "wal")
	}

	var fkEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to query foreign_keys: %v", err)
	}
	if fkEnabled != 1 {
		t.Errorf("foreign_keys = %d, want 1", fkEnabled)
	}
}

// TestNewSQLiteConnection_CustomConfig verifies custom configuration is applied.
func TestNewSQLiteConnection_CustomConfig(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")

	config := ConnectionConfig{
		Path:            dbPath,
		BusyTimeout:     10000,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 1 * time.Hour,
	}

	db, err := NewSQLiteConnection(config)
	if err != nil {
		t.Fatalf("NewSQLiteConnection() error = %v", err)
	}
	defer db.Close()

	var busyTimeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("failed to query busy_timeout: %v", err)
	}
	if busyTimeout != 10000 {
		t.Errorf("busy_timeout = %d, want 10000", busyTimeout)
	}
}

// TestNewSQLiteConnection_ConcurrentReads verifies WAL mode supports
// concurrent readers, which the index sees during status queries.
func TestNewSQLiteConnection_ConcurrentReads(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")

	config := ConnectionConfig{
		Path:         dbPath,
		BusyTimeout:  5000,
		MaxOpenConns: 5, // Allow multiple connections for this test
		MaxIdleConns: 5,
	}

	db, err := NewSQLiteConnection(config)
	if err != nil {
		t.Fatalf("NewSQLiteConnection() error = %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE blobs (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if _, err := db.Exec("INSERT INTO blobs (name) VALUES (?)", "sample.png"); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	done := make(chan bool, 5)
	for i := 0; i < 5; i++ {
		go func() {
			var name string
			if err := db.QueryRow("SELECT name FROM blobs WHERE id = 1").Scan(&name); err != nil {
				t.Errorf("concurrent read failed: %v", err)
			}
			done <- true
		}()
	}

	for i := 0; i < 5; i++ {
		<-done
	}
}

// TestNewSQLiteConnectionWithDefaults verifies the convenience wrapper.
func TestNewSQLiteConnectionWithDefaults(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")

	db, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteConnectionWithDefaults() error = %v", err)
	}
	defer db.Close()

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want %q", journalMode, "wal")
	}
}

// TestNewSQLiteConnection_InvalidPath verifies error handling when the parent
// directory does not exist.
func TestNewSQLiteConnection_InvalidPath(t *testing.T) {
	db, err := NewSQLiteConnection(DefaultConnectionConfig("/nonexistent/directory/index.db"))
	if err == nil {
		db.Close()
		t.Fatal("expected error for invalid path, got nil")
	}
}

// TestNewSQLiteConnection_Ping verifies the database is reachable after open.
func TestNewSQLiteConnection_Ping(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")

	db, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteConnectionWithDefaults() error = %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Artifact status values stored in the index.
const (
	// ArtifactStatusStored marks a blob that was written to the artifact store.
	ArtifactStatusStored = "stored"
	// ArtifactStatusFailed marks an input whose enhancement run failed before
	// an output could be produced.
	ArtifactStatusFailed = "failed"
)

// Artifact role values stored in the index.
const (
	ArtifactRoleInput  = "input"
	ArtifactRoleOutput = "output"
)

// ArtifactRecord represents a row in the artifacts table.
// Each enhancement request produces up to two rows sharing one ID:
// the persisted input blob and, on success, the persisted output blob.
type ArtifactRecord struct {
	ID          string    // Request UUID shared by the input and output rows
	Role        string    // Blob role: "input" or "output"
	Name        string    // Blob file name, "<uuid>.<ext>"
	SizeBytes   int64     // Blob size in bytes
	ContentType string    // MIME type, e.g. "image/png"
	Width       int       // Pixel width (0 when the image never decoded)
	Height      int       // Pixel height (0 when the image never decoded)
	Status      string    // "stored" or "failed"
	FailReason  string    // Failure description when status is "failed"
	CreatedAt   time.Time // Timestamp when the row was created
}

// Repository provides typed operations on the artifacts table.
// It wraps a Database instance and works with both synchronous and
// asynchronous writes via the AsyncWriter.
type Repository struct {
	db          *Database
	asyncWriter *AsyncWriter
}

// NewRepository creates a new Repository instance.
// The asyncWriter parameter is optional; if nil, all writes are synchronous.
func NewRepository(db *Database, asyncWriter *AsyncWriter) *Repository {
	return &Repository{
		db:          db,
		asyncWriter: asyncWriter,
	}
}

// asyncInsertOp carries a prepared query and its arguments through the
// AsyncWriter channel.
type asyncInsertOp struct {
	query string
	args  []interface{}
}

// InsertArtifact records a persisted blob (or a failed input) in the index.
// If an asyncWriter is configured and running, the write is queued and the
// method returns immediately; a full queue falls back to a synchronous write.
func (r *Repository) InsertArtifact(ctx context.Context, record ArtifactRecord) error {
	if r.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	query := `
		INSERT INTO artifacts (
			id, role, name, size_bytes, content_type,
			width, height, status, fail_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	args := []interface{}{
		record.ID,
		record.Role,
		record.Name,
		record.SizeBytes,
		record.ContentType,
		record.Width,
		record.Height,
		record.Status,
		nullString(record.FailReason),
	}

	// Try async write first if writer is available
	if r.asyncWriter != nil && r.asyncWriter.IsStarted() {
		if r.asyncWriter.Write(asyncInsertOp{query: query, args: args}) {
			return nil
		}
		// Queue full, fall through to synchronous write
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert artifact record: %w", err)
	}

	return nil
}

// GetArtifacts returns the index rows for one request ID, input row first.
// A request that failed before persisting an output has only the input row.
// Returns an empty slice when the ID is unknown.
func (r *Repository) GetArtifacts(ctx context.Context, id string) ([]ArtifactRecord, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	query := `
		SELECT id, role, name, size_bytes, content_type,
		       width, height, status, COALESCE(fail_reason, ''), created_at
		FROM artifacts
		WHERE id = ?
		ORDER BY role`

	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	return scanArtifactRows(rows)
}

// ListRecentArtifacts returns the most recently indexed rows, newest first.
func (r *Repository) ListRecentArtifacts(ctx context.Context, limit int) ([]ArtifactRecord, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, role, name, size_bytes, content_type,
		       width, height, status, COALESCE(fail_reason, ''), created_at
		FROM artifacts
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent artifacts: %w", err)
	}
	defer rows.Close()

	return scanArtifactRows(rows)
}

// CountArtifacts returns the total number of indexed rows.
func (r *Repository) CountArtifacts(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	var count int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM artifacts").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count artifacts: %w", err)
	}

	return count, nil
}

// scanArtifactRows reads ArtifactRecords from a result set.
// SQLite stores created_at as "YYYY-MM-DD HH:MM:SS" text, so it is scanned
// as a string and parsed.
func scanArtifactRows(rows *sql.Rows) ([]ArtifactRecord, error) {
	var records []ArtifactRecord

	for rows.Next() {
		var rec ArtifactRecord
		var createdAt string

		if err := rows.Scan(
			&rec.ID,
			&rec.Role,
			&rec.Name,
			&rec.SizeBytes,
			&rec.ContentType,
			&rec.Width,
			&rec.Height,
			&rec.Status,
			&rec.FailReason,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan artifact record: %w", err)
		}

		if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
			rec.CreatedAt = t
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate artifact records: %w", err)
	}

	return records, nil
}

// CreateAsyncWriteHandler returns a WriteHandler for use with AsyncWriter.
// The handler executes queued asyncInsertOp operations against the database.
//
// Example:
//
//	repo := NewRepository(database, nil)
//	writer := NewAsyncWriter(repo.CreateAsyncWriteHandler())
//	writer.Start()
//	repo = NewRepository(database, writer)
func (r *Repository) CreateAsyncWriteHandler() WriteHandler {
	return func(op WriteOperation) error {
		insertOp, ok := op.Data.(asyncInsertOp)
		if !ok {
			return fmt.Errorf("unexpected async operation type: %T", op.Data)
		}

		if _, err := r.db.Exec(insertOp.query, insertOp.args...); err != nil {
			return fmt.Errorf("async artifact insert failed: %w", err)
		}

		return nil
	}
}

// nullString converts an empty string to a NULL for nullable columns.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

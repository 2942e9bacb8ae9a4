// Package store implements the artifact blob store: UUID-named files under
// per-role directories, written atomically so a failed write never leaves a
// partial artifact behind.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Role separates input artifacts (the bytes a request arrived with) from
// output artifacts (the encoded result).
type Role string

// The two artifact roles.
const (
	RoleInput  Role = "input"
	RoleOutput Role = "output"
)

// Valid reports whether the role is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleInput || r == RoleOutput
}

// Sentinel errors for artifact storage.
var (
	ErrNotFound    = errors.New("store: artifact not found")
	ErrUnknownRole = errors.New("store: unknown role")
)

// Locator identifies one stored artifact. Treat it as opaque outside this
// package: the fields exist for index rows and log lines, not for path
// arithmetic.
type Locator struct {
	Role Role
	Name string // "<uuid>.<ext>"
}

// String renders the locator as "<role>/<name>".
func (l Locator) String() string {
	return string(l.Role) + "/" + l.Name
}

// FileStore persists artifact blobs under root/<role>/<uuid>.<ext>.
//
// Names are random UUIDs (github.com/google/uuid): collision-free across
// concurrent requests by construction, with no counters and no time-based
// components. Writes go to a temp file in the destination directory and are
// published with a rename, so readers never observe a partial artifact.
type FileStore struct {
	root string
}

// NewFileStore creates the per-role subdirectories under root and returns
// the store.
func NewFileStore(root string) (*FileStore, error) {
	for _, role := range []Role{RoleInput, RoleOutput} {
		if err := os.MkdirAll(filepath.Join(root, string(role)), 0755); err != nil {
			return nil, fmt.Errorf("store: creating %s directory: %w", role, err)
		}
	}
	return &FileStore{root: root}, nil
}

// Store persists data under a fresh UUID name and returns its locator.
//
// ext is the file extension without the dot ("png", "jpeg"); when empty the
// artifact is stored as ".bin". The write is atomic: on any failure the temp
// file is removed and nothing becomes visible under the role directory.
func (fs *FileStore) Store(data []byte, role Role, ext string) (Locator, error) {
	if !role.Valid() {
		return Locator{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}

	loc := Locator{Role: role, Name: uuid.NewString() + "." + ext}
	dir := filepath.Join(fs.root, string(role))

	tmp, err := os.CreateTemp(dir, ".pending-*")
	if err != nil {
		return Locator{}, fmt.Errorf("store: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up on error
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return Locator{}, fmt.Errorf("store: writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Locator{}, fmt.Errorf("store: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, loc.Name)); err != nil {
		return Locator{}, fmt.Errorf("store: publishing artifact: %w", err)
	}

	success = true
	return loc, nil
}

// Retrieve reads the artifact bytes for loc.
// Returns ErrNotFound when no artifact with that locator exists.
func (fs *FileStore) Retrieve(loc Locator) ([]byte, error) {
	if !loc.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, loc.Role)
	}
	// A locator names a bare file; anything path-like is unknown
	if loc.Name == "" || loc.Name != filepath.Base(loc.Name) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}

	data, err := os.ReadFile(fs.Path(loc))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
		}
		return nil, fmt.Errorf("store: reading artifact %s: %w", loc, err)
	}
	return data, nil
}

// Path returns the filesystem path behind loc. Useful for CLI output and the
// watch daemon's log lines; the path is not part of the store contract.
func (fs *FileStore) Path(loc Locator) string {
	return filepath.Join(fs.root, string(loc.Role), loc.Name)
}

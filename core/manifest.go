package core

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ModelManifest maps model kinds to their weight files. The manifest is an
// operator-supplied YAML document:
//
//	models:
//	  super_resolution:
//	    path: models/sr4x.pfw
//	    sha256: 9f86d081884c7d65...
//	  segmentation:
//	    path: models/seg.pfw
//
// Relative paths resolve against the manifest's own directory, so a manifest
// can travel with its weight files. The sha256 digest is optional; when
// present the validation suite verifies it before the process serves traffic.
type ModelManifest struct {
	Models map[string]ModelEntry `yaml:"models"`

	// dir is the manifest file's directory, used to resolve relative paths.
	dir string
}

// ModelEntry describes one weight file in the manifest.
type ModelEntry struct {
	Path   string `yaml:"path"`
	SHA256 string `yaml:"sha256,omitempty"`
}

// LoadManifest reads and parses a model manifest file.
// Returns a *ConfigError for a missing or invalid manifest.
func LoadManifest(path string) (*ModelManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrManifestMissing(path)
		}
		return nil, fmt.Errorf("failed to read manifest %q: %w", path, err)
	}

	var manifest ModelManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, ErrManifestInvalid(path, err.Error())
	}

	if len(manifest.Models) == 0 {
		return nil, ErrManifestInvalid(path, "no models listed")
	}
	for kind, entry := range manifest.Models {
		if entry.Path == "" {
			return nil, ErrManifestInvalid(path, fmt.Sprintf("model %q has an empty path", kind))
		}
	}

	manifest.dir = filepath.Dir(path)
	return &manifest, nil
}

// Lookup returns the resolved weight file path for a model kind.
// The second return is false when the manifest has no entry for the kind.
func (m *ModelManifest) Lookup(kind string) (string, bool) {
	entry, ok := m.Models[kind]
	if !ok {
		return "", false
	}
	return m.resolve(entry.Path), true
}

// Entries returns every manifest entry with its path resolved, keyed by kind.
func (m *ModelManifest) Entries() map[string]ModelEntry {
	resolved := make(map[string]ModelEntry, len(m.Models))
	for kind, entry := range m.Models {
		entry.Path = m.resolve(entry.Path)
		resolved[kind] = entry
	}
	return resolved
}

// VerifyChecksum compares a manifest entry's digest against the file on disk.
// Entries without a digest pass trivially.
func (m *ModelManifest) VerifyChecksum(kind string) error {
	entry, ok := m.Models[kind]
	if !ok {
		return fmt.Errorf("manifest has no model %q", kind)
	}
	if entry.SHA256 == "" {
		return nil
	}

	path := m.resolve(entry.Path)
	got, err := ComputeSHA256(path)
	if err != nil {
		return err
	}
	if got != entry.SHA256 {
		return ErrChecksumMismatch(path, entry.SHA256, got)
	}
	return nil
}

func (m *ModelManifest) resolve(path string) string {
	if filepath.IsAbs(path) || m.dir == "" {
		return path
	}
	return filepath.Join(m.dir, path)
}

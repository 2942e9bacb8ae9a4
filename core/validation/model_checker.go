package validation

import (
	"fmt"
	"path/filepath"
	"sort"

	"pixelforge/core"
	"pixelforge/inference"
)

// ModelChecker validates the model manifest and every weight file it lists.
// This is a molecule composing manifest loading, file existence, header
// probing, and checksum verification.
type ModelChecker struct {
	manifestPath string
}

// NewModelChecker creates a ModelChecker for the manifest at path.
func NewModelChecker(manifestPath string) *ModelChecker {
	return &ModelChecker{manifestPath: manifestPath}
}

// CheckManifest loads and parses the manifest. The returned manifest is nil
// when the result is invalid.
func (c *ModelChecker) CheckManifest() (*core.ModelManifest, ValidationResult) {
	manifest, err := core.LoadManifest(c.manifestPath)
	if err != nil {
		return nil, ValidationResult{
			Valid:   false,
			Message: "Model manifest unusable: " + c.manifestPath,
			Error:   err,
		}
	}
	return manifest, ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("%d models listed in %s", len(manifest.Models), filepath.Base(c.manifestPath)),
	}
}

// CheckModelFile validates one manifest entry: the weight file exists, its
// header decodes cleanly, the header kind matches the manifest kind, and
// the optional checksum matches. Checksum verification reads the whole
// weight file, so quick validation skips it.
func (c *ModelChecker) CheckModelFile(manifest *core.ModelManifest, kind string, verifyChecksum bool) ValidationResult {
	path, ok := manifest.Lookup(kind)
	if !ok {
		return ValidationResult{
			Valid:   false,
			Message: "Manifest has no entry for " + kind,
			Error:   fmt.Errorf("manifest has no model %q", kind),
		}
	}

	if err := CheckFileExists(path); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Weight file missing: " + path,
			Error:   core.ErrModelMissing(kind, path),
		}
	}

	header, err := inference.ProbeModelFile(path)
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Weight file unusable: " + path,
			Error:   err,
		}
	}

	// A swapped path serves the wrong model with a perfectly valid header
	if got := header.Kind.String(); got != kind {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("Manifest lists %s but %s holds a %s model", kind, filepath.Base(path), got),
			Error:   fmt.Errorf("model kind mismatch for %q: %s holds %q", kind, path, got),
		}
	}

	if verifyChecksum {
		if err := manifest.VerifyChecksum(kind); err != nil {
			return ValidationResult{
				Valid:   false,
				Message: "Checksum verification failed: " + path,
				Error:   err,
			}
		}
	}

	return ValidationResult{
		Valid:   true,
		Message: describeModel(filepath.Base(path), header),
	}
}

// ModelKinds returns the manifest's model kinds in stable order.
func ModelKinds(manifest *core.ModelManifest) []string {
	kinds := make([]string, 0, len(manifest.Models))
	for kind := range manifest.Models {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// describeModel renders a short summary of a probed header for step output.
func describeModel(name string, h inference.Header) string {
	switch h.Kind {
	case inference.KindSuperResolution:
		return fmt.Sprintf("%s: %dx upscale, %dx%d kernel", name, h.Scale, h.Kernel, h.Kernel)
	case inference.KindSegmentation:
		return fmt.Sprintf("%s: segmentation, %d weights", name, h.NWeights)
	default:
		return name
	}
}

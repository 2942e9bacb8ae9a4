package validation

import (
	"fmt"
	"os"

	"pixelforge/core"
)

// ValidationResult represents the result of a single validation check.
type ValidationResult struct {
	Valid   bool
	Warning bool // informational failure: reported but never fatal
	Message string
	Error   error
}

// ConfigChecker validates the workspace an enhancement run needs: the
// configuration file, writable data directories, and free disk space.
// This is a molecule composing the file and disk atoms against a loaded
// core.Config.
type ConfigChecker struct {
	cfg        *core.Config
	envPath    string
	spaceFloor int64
}

// NewConfigChecker creates a ConfigChecker with default settings.
func NewConfigChecker(cfg *core.Config) *ConfigChecker {
	return &ConfigChecker{
		cfg:        cfg,
		envPath:    ".env",
		spaceFloor: DefaultFreeSpaceFloor,
	}
}

// WithEnvPath sets a custom path for the .env file.
func (c *ConfigChecker) WithEnvPath(path string) *ConfigChecker {
	c.envPath = path
	return c
}

// WithSpaceFloor sets the minimum free disk space required at the data
// directory.
func (c *ConfigChecker) WithSpaceFloor(bytes int64) *ConfigChecker {
	c.spaceFloor = bytes
	return c
}

// CheckEnvFile reports whether the .env file exists. A missing file is a
// warning, not a failure: every setting has a default and can come from the
// process environment instead.
func (c *ConfigChecker) CheckEnvFile() ValidationResult {
	if err := CheckFileExists(c.envPath); err != nil {
		return ValidationResult{
			Valid:   false,
			Warning: true,
			Message: fmt.Sprintf("No %s file; using process environment and defaults", c.envPath),
		}
	}
	return ValidationResult{
		Valid:   true,
		Message: "Environment file found",
	}
}

// CheckDataDirs verifies the data directory and the artifact store root can
// be created and written.
func (c *ConfigChecker) CheckDataDirs() ValidationResult {
	dirs := []string{c.cfg.DataDir, c.cfg.ArtifactsDir()}
	for _, dir := range dirs {
		if err := checkWritableDir(dir); err != nil {
			return ValidationResult{
				Valid:   false,
				Message: "Data directory is not writable: " + dir,
				Error:   core.ErrDataDirUnusable(dir, err.Error()),
			}
		}
	}
	return ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("%d directories writable under %s", len(dirs), c.cfg.DataDir),
	}
}

// CheckDiskSpace verifies free space at the data directory is above the
// configured floor.
func (c *ConfigChecker) CheckDiskSpace() ValidationResult {
	info, err := GetDiskSpace(c.cfg.DataDir)
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Cannot determine free disk space for " + c.cfg.DataDir,
			Error:   err,
		}
	}

	if info.Free < c.spaceFloor {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("Only %s free at %s, need %s", info.FreeFormatted, c.cfg.DataDir, core.FormatBytes(c.spaceFloor)),
			Error: &DiskSpaceError{
				Path:      c.cfg.DataDir,
				Required:  c.spaceFloor,
				Available: info.Free,
				Message: fmt.Sprintf("insufficient disk space at %s: need %s, have %s free",
					c.cfg.DataDir, core.FormatBytes(c.spaceFloor), info.FreeFormatted),
			},
		}
	}

	return ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("%s free (%.0f%% used)", info.FreeFormatted, info.UsedPercent),
	}
}

// checkWritableDir creates dir if needed and proves writability with a
// probe file.
func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

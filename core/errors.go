package core

import (
	"errors"
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeEnvFileMissing  = "ENV_FILE_MISSING"
	ErrCodeMissingConfig   = "MISSING_CONFIG"
	ErrCodeInvalidValue    = "INVALID_VALUE"
	ErrCodeManifestMissing = "MANIFEST_MISSING"
	ErrCodeManifestInvalid = "MANIFEST_INVALID"
	ErrCodeModelMissing    = "MODEL_MISSING"
	ErrCodeChecksum        = "CHECKSUM_MISMATCH"
	ErrCodeDataDir         = "DATA_DIR_UNUSABLE"
)

// ErrEnvFileMissing returns an error for a missing .env file.
func ErrEnvFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFileMissing,
		Message: fmt.Sprintf("Configuration file not found: %s", path),
		Action:  "Copy example.env to .env and configure the required values",
	}
}

// ErrMissingConfig returns an error for missing required configuration.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// ErrInvalidValue returns an error for a configuration value outside its valid range.
func ErrInvalidValue(varName string, got interface{}, constraint string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid value for %s: %v", varName, got),
		Action:  fmt.Sprintf("Set %s to %s", varName, constraint),
	}
}

// ErrManifestMissing returns an error for a missing model manifest file.
func ErrManifestMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeManifestMissing,
		Message: fmt.Sprintf("Model manifest not found: %s", path),
		Action:  "Set MODEL_MANIFEST to a manifest file listing the model weight paths",
	}
}

// ErrManifestInvalid returns an error for a manifest that fails to parse or validate.
func ErrManifestInvalid(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeManifestInvalid,
		Message: fmt.Sprintf("Model manifest %s is invalid: %s", path, reason),
		Action:  "Fix the manifest YAML; each model needs a non-empty path",
	}
}

// ErrModelMissing returns an error for a manifest entry whose weight file is absent.
func ErrModelMissing(kind string, path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeModelMissing,
		Message: fmt.Sprintf("Model file for %q not found: %s", kind, path),
		Action:  "Place the weight file at the manifest path, or run 'pixelforge genmodel' to create a development model",
	}
}

// ErrChecksumMismatch returns an error for a model file whose digest does not match the manifest.
func ErrChecksumMismatch(path string, want string, got string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeChecksum,
		Message: fmt.Sprintf("Checksum mismatch for %s: manifest says %s, file is %s", path, want, got),
		Action:  "Replace the corrupt weight file or update the manifest digest",
	}
}

// ErrDataDirUnusable returns an error for a data directory that cannot be created or written.
func ErrDataDirUnusable(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeDataDir,
		Message: fmt.Sprintf("Data directory %s is unusable: %s", path, reason),
		Action:  "Set DATA_DIR to a writable directory",
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so.
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError.
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}

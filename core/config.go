package core

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds all configuration values for the enhancement pipeline and its
// supporting CLI front-end. Values come from environment variables (typically
// via a .env file loaded in main) with sensible zero-config defaults; only
// the model manifest location is required for model-backed stages.
type Config struct {
	// Workspace
	DataDir      string // Root directory for artifacts and the index database
	ManifestPath string // Path to the YAML model manifest

	// Pipeline
	MaxInferenceWorkers int      // Concurrent model-stage executions (admission semaphore size)
	DefaultStages       []string // Stage names applied when a request names none (watch mode)
	ResizeTarget        string   // Default resize spec for watch mode ("<w>x<h>" or "original")
	MaxSourceBytes      int64    // Largest accepted input image in bytes

	// Artifact index
	IndexDBPath    string // SQLite database path; defaults under DataDir
	IndexQueueSize int    // Async index writer buffer capacity

	// Watch mode
	WatchInbox    string        // Directory polled for new images
	WatchInterval time.Duration // Poll interval
	WatchWorkers  int           // Concurrent files processed by the watch daemon

	// Logging
	LogPath string // Log file path (rotated)
	DevMode bool   // Development mode: console-friendly debug logging
}

// Default configuration values.
const (
	DefaultMaxInferenceWorkers = 2
	DefaultMaxSourceBytes      = 52428800 // 50MB covers large photos while bounding memory
	DefaultIndexQueueSize      = 256
	DefaultWatchWorkers        = 4
	DefaultWatchIntervalSecs   = 2
)

// LoadConfig loads configuration from environment variables with defaults.
// Validation failures return a *ConfigError with an actionable message.
func LoadConfig() (*Config, error) {
	dataDir := GetEnvOrDefault("DATA_DIR", "./data")
	manifestPath := GetEnvOrDefault("MODEL_MANIFEST", "./models/manifest.yaml")

	// 2 concurrent inferences keeps worst-case working memory bounded even
	// for large super-resolution outputs; hosts with more headroom raise it.
	maxInference := ParseIntEnv("MAX_INFERENCE_WORKERS", DefaultMaxInferenceWorkers)
	if maxInference < 1 || maxInference > 64 {
		return nil, ErrInvalidValue("MAX_INFERENCE_WORKERS", maxInference, "an integer between 1 and 64")
	}

	// Size values accept human-readable forms, so a typo must fail loudly
	// rather than fall back to a default the operator did not choose.
	var maxSourceBytes int64 = DefaultMaxSourceBytes
	if raw := os.Getenv("MAX_SOURCE_BYTES"); raw != "" {
		parsed, err := ParseBytes(raw)
		if err != nil {
			return nil, ErrInvalidValue("MAX_SOURCE_BYTES", raw, `a size such as "52428800" or "50MB"`)
		}
		maxSourceBytes = parsed
	}
	if maxSourceBytes < 1 {
		return nil, ErrInvalidValue("MAX_SOURCE_BYTES", maxSourceBytes, "a positive byte count")
	}

	indexQueue := ParseIntEnv("INDEX_QUEUE_SIZE", DefaultIndexQueueSize)
	if indexQueue < 1 {
		return nil, ErrInvalidValue("INDEX_QUEUE_SIZE", indexQueue, "a positive queue capacity")
	}

	watchWorkers := ParseIntEnv("WATCH_WORKERS", DefaultWatchWorkers)
	if watchWorkers < 1 || watchWorkers > 32 {
		return nil, ErrInvalidValue("WATCH_WORKERS", watchWorkers, "an integer between 1 and 32")
	}

	watchInterval := ParseDurationEnv("WATCH_INTERVAL_SECONDS", DefaultWatchIntervalSecs)
	if watchInterval < 100*time.Millisecond {
		return nil, ErrInvalidValue("WATCH_INTERVAL_SECONDS", watchInterval, "at least 1 second")
	}

	defaultStages := ParseListEnv("DEFAULT_STAGES", []string{"upscale", "denoise_sharpen"})

	return &Config{
		DataDir:             dataDir,
		ManifestPath:        manifestPath,
		MaxInferenceWorkers: maxInference,
		DefaultStages:       defaultStages,
		ResizeTarget:        GetEnvOrDefault("RESIZE_TARGET", "original"),
		MaxSourceBytes:      maxSourceBytes,
		IndexDBPath:         GetEnvOrDefault("INDEX_DB_PATH", filepath.Join(dataDir, "artifacts.db")),
		IndexQueueSize:      indexQueue,
		WatchInbox:          GetEnvOrDefault("WATCH_INBOX", filepath.Join(dataDir, "inbox")),
		WatchInterval:       watchInterval,
		WatchWorkers:        watchWorkers,
		LogPath:             GetEnvOrDefault("LOG_PATH", "pixelforge.log"),
		DevMode:             ParseBoolEnv("DEV_MODE", false),
	}, nil
}

// ArtifactsDir returns the root directory of the artifact blob store.
func (c *Config) ArtifactsDir() string {
	return filepath.Join(c.DataDir, "artifacts")
}

// WatchDoneDir returns the directory processed inbox files are moved to.
func (c *Config) WatchDoneDir() string {
	return filepath.Join(c.WatchInbox, "done")
}

// WatchFailedDir returns the directory failed inbox files are moved to.
func (c *Config) WatchFailedDir() string {
	return filepath.Join(c.WatchInbox, "failed")
}

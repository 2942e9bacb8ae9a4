package shutdown

import (
	"context"
	"os"
	"path/filepath"

	"pixelforge/core"

	"go.uber.org/zap"
)

// SweepPendingArtifacts returns a shutdown function that removes orphaned
// temp files from the role directories under artifactsRoot.
//
// The blob store writes each artifact to a ".pending-*" file inside its role
// directory and publishes it with a rename. The sweep runs after in-flight
// work has drained, so anything still matching is a leftover from an earlier
// crash or kill, never a write in progress. Removal failures are logged and
// swallowed: a sweep must not block shutdown.
//
// Priority recommendation: 30-39 (after queues drain, before the log sync).
//
// Usage:
//
//	manager.Register("pending-sweep", 30, shutdown.SweepPendingArtifacts(logger, cfg.ArtifactsDir()))
func SweepPendingArtifacts(logger *zap.Logger, artifactsRoot string) core.ShutdownFunc {
	return func(ctx context.Context) error {
		return sweepPendingFiles(ctx, logger, artifactsRoot)
	}
}

// sweepPendingFiles removes ".pending-*" files one directory level below
// root. It always returns nil; failures are logged per file.
func sweepPendingFiles(ctx context.Context, logger *zap.Logger, root string) error {
	pattern := filepath.Join(root, "*", ".pending-*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		logger.Error("Failed to list pending artifact files",
			zap.String("pattern", pattern),
			zap.Error(err),
		)
		return nil
	}

	if len(matches) == 0 {
		logger.Debug("No pending artifact files to sweep",
			zap.String("root", root),
		)
		return nil
	}

	logger.Info("Sweeping pending artifact files",
		zap.Int("file_count", len(matches)),
	)

	var removed, failed int
	for _, match := range matches {
		select {
		case <-ctx.Done():
			logger.Warn("Shutdown deadline hit during sweep",
				zap.Int("removed", removed),
				zap.Int("remaining", len(matches)-removed-failed),
			)
			return nil
		default:
		}

		if err := os.Remove(match); err != nil {
			failed++
			logger.Warn("Failed to remove pending artifact file",
				zap.String("file", filepath.Base(match)),
				zap.Error(err),
			)
		} else {
			removed++
			logger.Debug("Removed pending artifact file",
				zap.String("file", filepath.Base(match)),
			)
		}
	}

	logger.Info("Pending artifact sweep complete",
		zap.Int("removed", removed),
		zap.Int("failed", failed),
	)

	return nil
}

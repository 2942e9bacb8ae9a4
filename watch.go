package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pixelforge/core"
	"pixelforge/db"
	"pixelforge/logging"
	"pixelforge/pipeline"
	"pixelforge/shutdown"
	"pixelforge/stage"
)

// summaryInterval is how often the watch daemon logs aggregate pipeline
// metrics while idle or busy.
const summaryInterval = time.Minute

// Watcher is the hot-folder daemon organism. It polls the inbox directory
// for new image files, runs each through the pipeline with the configured
// default stages on a bounded worker pool, and moves originals to done/ or
// failed/ as their runs finish.
//
// A file name is claimed before its worker starts, so a poll tick never
// submits a file twice while an earlier run is still going. Producers should
// publish into the inbox with a rename; names starting with a dot are
// skipped, which keeps half-copied ".tmp" style files out of the pipeline.
type Watcher struct {
	cfg     *core.Config
	log     *logging.Logger
	comps   *components
	manager *shutdown.Manager
	stages  []stage.Kind
	params  stage.Params
	done    chan struct{}

	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewWatcher parses the configured default stages and creates the inbox
// directory layout (inbox, done, failed).
func NewWatcher(cfg *core.Config, log *logging.Logger, comps *components, manager *shutdown.Manager) (*Watcher, error) {
	kinds, err := stage.ParseKinds(cfg.DefaultStages)
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_STAGES: %w", err)
	}

	for _, dir := range []string{cfg.WatchInbox, cfg.WatchDoneDir(), cfg.WatchFailedDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	return &Watcher{
		cfg:     cfg,
		log:     log.Named("watch"),
		comps:   comps,
		manager: manager,
		stages:  kinds,
		params:  stage.Params{ResizeTarget: cfg.ResizeTarget},
		done:    make(chan struct{}),
		claimed: make(map[string]struct{}),
	}, nil
}

// Done returns a channel that closes once the watch loop and all of its
// workers have finished.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Start polls the inbox until ctx is cancelled. Files present at startup are
// picked up immediately; later arrivals wait at most one poll interval.
// Start returns only after in-flight workers finish.
func (w *Watcher) Start(ctx context.Context) {
	defer close(w.done)

	w.log.Info("Watching inbox",
		zap.String("inbox", w.cfg.WatchInbox),
		zap.Duration("interval", w.cfg.WatchInterval),
		zap.Int("workers", w.cfg.WatchWorkers),
		zap.Strings("stages", stageNames(w.stages)),
		zap.String("resize_target", w.params.ResizeTarget),
	)

	group := &errgroup.Group{}
	group.SetLimit(w.cfg.WatchWorkers)

	ticker := time.NewTicker(w.cfg.WatchInterval)
	defer ticker.Stop()
	summary := time.NewTicker(summaryInterval)
	defer summary.Stop()

	w.scanInbox(ctx, group)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Stopping watch loop",
				zap.Int64("in_flight", w.manager.ActiveOperations()))
			group.Wait()
			return
		case <-ticker.C:
			w.scanInbox(ctx, group)
		case <-summary.C:
			w.logSummary()
		}
	}
}

// scanInbox claims unprocessed inbox files and hands them to the worker
// pool. Group.Go blocks once WATCH_WORKERS workers are busy, which holds the
// scan (and further claims) until a slot frees up.
func (w *Watcher) scanInbox(ctx context.Context, group *errgroup.Group) {
	entries, err := os.ReadDir(w.cfg.WatchInbox)
	if err != nil {
		w.log.Error("Inbox scan failed", zap.Error(err))
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if !w.claim(name) {
			continue
		}
		group.Go(func() error {
			w.process(ctx, name)
			return nil
		})
	}
}

// process runs one inbox file through the pipeline and moves it out of the
// inbox according to the outcome. Runs interrupted by shutdown leave the
// original in place for the next daemon start.
func (w *Watcher) process(ctx context.Context, name string) {
	path := filepath.Join(w.cfg.WatchInbox, name)

	source, err := os.ReadFile(path)
	if err != nil {
		// The file may have been removed between the scan and the read.
		w.log.Warn("Skipping unreadable inbox file",
			zap.String("file", name), zap.Error(err))
		w.release(name)
		return
	}

	if int64(len(source)) > w.cfg.MaxSourceBytes {
		w.log.Warn("Rejecting oversized inbox file",
			zap.String("file", name),
			zap.String("size", core.FormatBytes(int64(len(source)))),
			zap.String("limit", core.FormatBytes(w.cfg.MaxSourceBytes)),
		)
		w.moveTo(name, w.cfg.WatchFailedDir())
		return
	}

	var artifact pipeline.Artifact
	start := time.Now()
	err = w.manager.WrapOperation(ctx, "enhance "+name, func(ctx context.Context) error {
		var runErr error
		artifact, runErr = w.comps.pipe.Run(ctx, pipeline.Request{
			Source: source,
			Stages: w.stages,
			Params: w.params,
		})
		return runErr
	})

	switch {
	case err == nil:
		w.log.Info("Enhanced inbox file",
			zap.String("file", name),
			zap.String("artifact_id", artifact.ID),
			zap.String("output", w.comps.store.Path(artifact.Output)),
			zap.Duration("took", time.Since(start)),
		)
		w.moveTo(name, w.cfg.WatchDoneDir())
	case errors.Is(err, shutdown.ErrTrackerClosed), errors.Is(err, context.Canceled):
		w.log.Info("Leaving inbox file for the next run", zap.String("file", name))
	default:
		w.log.Error("Enhancement failed",
			zap.String("file", name),
			zap.Error(err),
		)
		w.moveTo(name, w.cfg.WatchFailedDir())
	}
}

// claim reserves a file name for one worker. False means the name is already
// owned by an in-flight or completed run.
func (w *Watcher) claim(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, taken := w.claimed[name]; taken {
		return false
	}
	w.claimed[name] = struct{}{}
	return true
}

// release forgets a claim so a future arrival with the same name is
// processed again.
func (w *Watcher) release(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.claimed, name)
}

// moveTo moves an inbox file into the done or failed directory and releases
// its claim. A file that cannot be moved stays claimed, otherwise every poll
// tick would re-enhance it.
func (w *Watcher) moveTo(name, dir string) {
	src := filepath.Join(w.cfg.WatchInbox, name)
	if err := os.Rename(src, filepath.Join(dir, name)); err != nil {
		w.log.Error("Failed to move processed file, leaving it claimed",
			zap.String("file", name), zap.Error(err))
		return
	}
	w.release(name)
}

// logSummary logs the aggregate pipeline metrics. Nothing is logged before
// the first record, so an idle daemon stays quiet.
func (w *Watcher) logSummary() {
	sum := w.comps.metrics.Summary()
	if sum.TotalRecords == 0 {
		return
	}
	w.log.Info("Pipeline metrics",
		zap.Int64("records", sum.TotalRecords),
		zap.Int64("success", sum.TotalSuccess),
		zap.Int64("errors", sum.TotalErrors),
		zap.Duration("uptime", sum.Uptime.Round(time.Second)),
	)
}

// stageNames renders stage kinds for log fields.
func stageNames(kinds []stage.Kind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

// runWatch starts the hot-folder daemon and blocks until a shutdown signal
// arrives and cleanup completes.
func runWatch(cfg *core.Config, logger *logging.Logger) int {
	if code := runStartupValidation(cfg, logger); code != core.ExitCodeSuccess {
		return code
	}

	logger.Info("Configuration loaded",
		zap.String("data_dir", cfg.DataDir),
		zap.String("manifest", cfg.ManifestPath),
		zap.String("index_db", cfg.IndexDBPath),
		zap.String("inbox", cfg.WatchInbox),
		zap.Strings("default_stages", cfg.DefaultStages),
		zap.String("resize_target", cfg.ResizeTarget),
		zap.Int("max_inference_workers", cfg.MaxInferenceWorkers),
		zap.Int("watch_workers", cfg.WatchWorkers),
		zap.Duration("watch_interval", cfg.WatchInterval),
		zap.Bool("dev_mode", cfg.DevMode),
	)

	comps, err := buildComponents(cfg, logger, true)
	if err != nil {
		logger.Error("Failed to initialize pipeline", zap.Error(err))
		return core.ExitCodeError
	}

	manager := shutdown.NewManager(logger.Zap())
	registerCleanup(manager, comps, cfg, logger)

	watcher, err := NewWatcher(cfg, logger, comps, manager)
	if err != nil {
		logger.Error("Failed to create watcher", zap.Error(err))
		comps.Close()
		return core.ExitCodeError
	}

	manager.Start()
	go watcher.Start(manager.Context())

	manager.Wait()

	err = manager.Shutdown()
	<-watcher.Done()
	if err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
		return core.ExitCodeError
	}

	logger.Info("Goodbye!")
	return core.ExitCodeSuccess
}

// registerCleanup wires the daemon's resources into the shutdown manager.
// Priorities follow the registry convention: report state first, then drain
// queues, close resources, sweep leftovers, and flush logs last.
func registerCleanup(manager *shutdown.Manager, comps *components, cfg *core.Config, logger *logging.Logger) {
	manager.Register("metrics-summary", 5, func(ctx context.Context) error {
		sum := comps.metrics.Summary()
		logger.Info("Final pipeline metrics",
			zap.Int64("records", sum.TotalRecords),
			zap.Int64("success", sum.TotalSuccess),
			zap.Int64("errors", sum.TotalErrors),
			zap.Duration("uptime", sum.Uptime.Round(time.Second)),
		)
		return nil
	})

	manager.Register("index-writer", 10, func(ctx context.Context) error {
		timeout := db.DefaultDrainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining < timeout {
				timeout = remaining
			}
		}
		if !comps.writer.StopWithTimeout(timeout) {
			return fmt.Errorf("index writer did not drain %d pending writes within %v",
				comps.writer.Pending(), timeout)
		}
		return nil
	})

	manager.Register("database", 20, func(ctx context.Context) error {
		return comps.database.Close()
	})

	manager.Register("pending-sweep", 30,
		shutdown.SweepPendingArtifacts(logger.Zap(), cfg.ArtifactsDir()))

	manager.Register("log-sync", 40, func(ctx context.Context) error {
		return logger.Sync()
	})
}

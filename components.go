package main

import (
	"fmt"
	"time"

	"pixelforge/core"
	"pixelforge/db"
	"pixelforge/inference"
	"pixelforge/logging"
	"pixelforge/metrics"
	"pixelforge/pipeline"
	"pixelforge/store"
)

// components holds the wired collaborators behind one CLI command: the blob
// store, the artifact index, the metrics store, and the pipeline organism
// they feed.
type components struct {
	store    *store.FileStore
	database *db.Database
	writer   *db.AsyncWriter // nil when async indexing is off
	index    *db.Repository
	metrics  *metrics.Store
	pipe     *pipeline.Pipeline
}

// buildComponents wires the pipeline and its collaborators from
// configuration.
//
// async enables the buffered index writer used by the watch daemon. One-shot
// commands index synchronously instead: their process exits right after the
// run, so records must be durable when Run returns and there must be no
// queue left to drain.
//
// The caller owns the returned resources: Close for one-shot commands,
// shutdown manager registrations for the daemon.
func buildComponents(cfg *core.Config, log *logging.Logger, async bool) (*components, error) {
	fileStore, err := store.NewFileStore(cfg.ArtifactsDir())
	if err != nil {
		return nil, err
	}

	database, err := db.NewDatabaseWithConfig(db.DefaultDatabaseConfig(cfg.IndexDBPath))
	if err != nil {
		return nil, fmt.Errorf("opening artifact index: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating artifact index: %w", err)
	}

	index := db.NewRepository(database, nil)
	var writer *db.AsyncWriter
	if async {
		// Index write failures are logged and dropped: the blob store, not
		// the index, is the durability contract.
		handler := index.CreateAsyncWriteHandler()
		writer = db.NewAsyncWriterWithConfig(func(op db.WriteOperation) error {
			if err := handler(op); err != nil {
				log.Errorw("Index write failed", "error", err)
				return err
			}
			return nil
		}, db.AsyncWriterConfig{
			ChannelCapacity: cfg.IndexQueueSize,
			DrainTimeout:    db.DefaultDrainTimeout,
		})
		writer.Start()
		index = db.NewRepository(database, writer)
	}

	// A missing or broken manifest only matters to model-backed stages: the
	// registry reports ErrModelNotFound when such a stage first asks for its
	// model. Pure stages keep working without any manifest at all.
	var srPath, segPath string
	if manifest, err := core.LoadManifest(cfg.ManifestPath); err != nil {
		log.Warnw("Model manifest unavailable, model-backed stages will fail",
			"manifest", cfg.ManifestPath,
			"error", err)
	} else {
		srPath, _ = manifest.Lookup(inference.KindSuperResolution.String())
		segPath, _ = manifest.Lookup(inference.KindSegmentation.String())
	}

	collector := metrics.NewStore(metrics.DefaultHistoryCapacity, time.Now())

	pipe, err := pipeline.New(pipeline.Config{
		Registry:            inference.NewRegistry(),
		Store:               fileStore,
		Index:               index,
		Metrics:             collector,
		Logger:              log,
		SRModelPath:         srPath,
		SegModelPath:        segPath,
		MaxInferenceWorkers: cfg.MaxInferenceWorkers,
	})
	if err != nil {
		if writer != nil {
			writer.Stop()
		}
		database.Close()
		return nil, err
	}

	return &components{
		store:    fileStore,
		database: database,
		writer:   writer,
		index:    index,
		metrics:  collector,
		pipe:     pipe,
	}, nil
}

// Close drains the async writer (when present) and closes the database. The
// watch daemon does not call it on the happy path; its shutdown manager owns
// the same resources through prioritized handlers.
func (c *components) Close() error {
	if c.writer != nil {
		c.writer.Stop()
	}
	return c.database.Close()
}

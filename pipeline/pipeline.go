package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"pixelforge/core"
	"pixelforge/db"
	"pixelforge/imaging"
	"pixelforge/inference"
	"pixelforge/logging"
	"pixelforge/metrics"
	"pixelforge/stage"
	"pixelforge/store"
)

// Request describes one enhancement submission. Stages may arrive in any
// order and contain duplicates; execution always follows the canonical order
// Upscale → DenoiseSharpen → BackgroundRemove → Resize with duplicates
// collapsed.
type Request struct {
	Source []byte
	Stages []stage.Kind
	Params stage.Params
}

// Artifact identifies the persisted blobs of one successful Run. The ID is a
// UUID minted at ingestion; it doubles as the request correlation ID in logs,
// metrics, and the artifact index.
type Artifact struct {
	ID     string
	Input  store.Locator
	Output store.Locator
}

// Config wires the orchestrator's collaborators. Registry and Logger are
// required. Store is required for Run but not for Enhance. Index and Metrics
// are optional; a nil value disables that concern.
type Config struct {
	Registry *inference.Registry
	Store    *store.FileStore
	Index    *db.Repository
	Metrics  metrics.Collector
	Logger   *logging.Logger

	// Model file paths, normally resolved from the manifest.
	SRModelPath  string
	SegModelPath string

	// MaxInferenceWorkers bounds concurrent model-stage execution across all
	// requests. Values below 1 fall back to the configured default.
	MaxInferenceWorkers int
}

// Pipeline is the enhancement orchestrator organism. It composes:
// - the imaging codecs and stage executors (molecules)
// - the model registry for lazy shared model loading
// - a weighted semaphore bounding model-stage concurrency
// - the artifact store and index for the Run flow
//
// A single Pipeline serves unlimited concurrent requests; per-request state
// lives on the stack of each call.
//
// Example:
//
//	p, err := pipeline.New(pipeline.Config{
//	    Registry:    inference.NewRegistry(),
//	    Store:       fileStore,
//	    Logger:      log,
//	    SRModelPath: "models/sr4x.pfw",
//	})
//	if err != nil {
//	    return err
//	}
//	out, err := p.Enhance(ctx, raw, []stage.Kind{stage.Upscale}, stage.Params{})
type Pipeline struct {
	registry     *inference.Registry
	store        *store.FileStore
	index        *db.Repository
	collector    metrics.Collector
	log          *logging.Logger
	sem          *semaphore.Weighted
	srModelPath  string
	segModelPath string

	// stageBuilder constructs the executor list for a request; swapped in
	// tests to observe execution.
	stageBuilder func(requested []stage.Kind, params stage.Params) []stage.Stage
}

// New creates a Pipeline from its collaborators.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("pipeline: model registry is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("pipeline: logger is required")
	}

	workers := cfg.MaxInferenceWorkers
	if workers < 1 {
		workers = core.DefaultMaxInferenceWorkers
	}

	p := &Pipeline{
		registry:     cfg.Registry,
		store:        cfg.Store,
		index:        cfg.Index,
		collector:    cfg.Metrics,
		log:          cfg.Logger.Named("pipeline"),
		sem:          semaphore.NewWeighted(int64(workers)),
		srModelPath:  cfg.SRModelPath,
		segModelPath: cfg.SegModelPath,
	}
	p.stageBuilder = p.buildStages
	return p, nil
}

// buildStages maps requested stage kinds onto executors in canonical order.
func (p *Pipeline) buildStages(requested []stage.Kind, params stage.Params) []stage.Stage {
	var executors []stage.Stage
	for _, kind := range stage.Normalize(requested) {
		switch kind {
		case stage.Upscale:
			executors = append(executors, stage.NewUpscale(p.registry, p.srModelPath))
		case stage.DenoiseSharpen:
			executors = append(executors, stage.NewDenoiseSharpen())
		case stage.BackgroundRemove:
			executors = append(executors, stage.NewBackgroundRemove(p.registry, p.segModelPath))
		case stage.Resize:
			executors = append(executors, stage.NewResize(params.ResizeTarget, p.log))
		}
	}
	return executors
}

// Enhance runs the full stage path on raw image bytes and returns the final
// PNG encoding. Nothing is persisted. An empty stage list re-encodes the
// decoded input unchanged.
//
// Errors unwrap to the package sentinels: imaging.ErrDecode for undecodable
// input, the inference sentinels for model problems, imaging.ErrEncode for
// encoding failures, and context.Canceled / context.DeadlineExceeded when
// the context ends between stages.
func (p *Pipeline) Enhance(ctx context.Context, input []byte, stages []stage.Kind, params stage.Params) ([]byte, error) {
	requestID := uuid.NewString()
	log := p.log.With(logging.RequestField(requestID))

	res, err := p.enhance(ctx, log, requestID, input, stages, params, NewTracker())
	if err != nil {
		return nil, err
	}
	return res.encoded, nil
}

// Run executes the request-to-artifact flow: persist the input blob, run the
// stage path, persist the output blob, and index both. The input blob is
// persisted at ingestion, so failed runs still leave the original bytes and
// a failed index row behind; output artifacts exist only for successful runs.
func (p *Pipeline) Run(ctx context.Context, req Request) (Artifact, error) {
	if p.store == nil {
		return Artifact{}, fmt.Errorf("pipeline: artifact store not configured")
	}

	requestID := uuid.NewString()
	log := p.log.With(logging.RequestField(requestID))
	start := time.Now()
	tr := NewTracker()

	contentType, ext := sniffSource(req.Source)
	inputLoc, err := p.store.Store(req.Source, store.RoleInput, ext)
	if err != nil {
		return Artifact{}, p.fail(tr, "", fmt.Errorf("persist input: %w", err))
	}
	log.Debugw("Input blob persisted", "locator", inputLoc.String(), "bytes", len(req.Source))

	inputRec := db.ArtifactRecord{
		ID:          requestID,
		Role:        db.ArtifactRoleInput,
		Name:        inputLoc.Name,
		SizeBytes:   int64(len(req.Source)),
		ContentType: contentType,
		Status:      db.ArtifactStatusStored,
	}

	res, err := p.enhance(ctx, log, requestID, req.Source, req.Stages, req.Params, tr)
	if err != nil {
		inputRec.Status = db.ArtifactStatusFailed
		inputRec.FailReason = err.Error()
		p.indexRecord(ctx, log, inputRec)
		return Artifact{}, err
	}
	inputRec.Width = res.inWidth
	inputRec.Height = res.inHeight

	if cerr := ctx.Err(); cerr != nil {
		inputRec.Status = db.ArtifactStatusFailed
		inputRec.FailReason = cerr.Error()
		p.indexRecord(ctx, log, inputRec)
		return Artifact{}, p.fail(tr, "", cerr)
	}

	persistStart := time.Now()
	outputLoc, err := p.store.Store(res.encoded, store.RoleOutput, "png")
	p.recordPhase(requestID, metrics.PhasePersist, persistStart, res.outWidth, res.outHeight, err)
	if err != nil {
		inputRec.Status = db.ArtifactStatusFailed
		inputRec.FailReason = err.Error()
		p.indexRecord(ctx, log, inputRec)
		return Artifact{}, p.fail(tr, "", fmt.Errorf("persist output: %w", err))
	}

	if err := tr.To(StatePersisted); err != nil {
		return Artifact{}, p.fail(tr, "", err)
	}

	p.indexRecord(ctx, log, inputRec)
	p.indexRecord(ctx, log, db.ArtifactRecord{
		ID:          requestID,
		Role:        db.ArtifactRoleOutput,
		Name:        outputLoc.Name,
		SizeBytes:   int64(len(res.encoded)),
		ContentType: "image/png",
		Width:       res.outWidth,
		Height:      res.outHeight,
		Status:      db.ArtifactStatusStored,
	})

	fields := []zap.Field{
		zap.String("input", inputLoc.String()),
		zap.String("output", outputLoc.String()),
	}
	fields = append(fields, logging.TimingFields(start, time.Now())...)
	log.Info("Enhancement complete", fields...)

	return Artifact{ID: requestID, Input: inputLoc, Output: outputLoc}, nil
}

// runResult carries the encoded output plus the geometry the index record
// needs.
type runResult struct {
	encoded   []byte
	format    string
	inWidth   int
	inHeight  int
	outWidth  int
	outHeight int
}

// enhance is the shared stage path behind Enhance and Run: decode, execute
// the requested stages in canonical order under the admission semaphore,
// encode PNG. The tracker enforces the lifecycle; cancellation is checked
// between stages only.
func (p *Pipeline) enhance(ctx context.Context, log *logging.Logger, requestID string, source []byte, requested []stage.Kind, params stage.Params, tr *Tracker) (*runResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, p.fail(tr, "", err)
	}

	decodeStart := time.Now()
	buf, format, err := imaging.Decode(source)
	if err != nil {
		p.recordPhase(requestID, metrics.PhaseDecode, decodeStart, 0, 0, err)
		return nil, p.fail(tr, "", err)
	}
	p.recordPhase(requestID, metrics.PhaseDecode, decodeStart, buf.Width, buf.Height, nil)
	if err := tr.To(StateDecoded); err != nil {
		return nil, p.fail(tr, "", err)
	}

	decodeFields := []zap.Field{zap.String("format", format)}
	decodeFields = append(decodeFields, logging.DimensionFields(buf.Width, buf.Height, buf.Channels)...)
	log.Debug("Source decoded", decodeFields...)

	res := &runResult{format: format, inWidth: buf.Width, inHeight: buf.Height}

	executors := p.stageBuilder(requested, params)

	// One admission slot covers every model stage of the request, including
	// cheap stages sandwiched between them.
	firstModel, lastModel := -1, -1
	for i, st := range executors {
		if st.Kind().RequiresModel() {
			if firstModel < 0 {
				firstModel = i
			}
			lastModel = i
		}
	}

	held := false
	defer func() {
		if held {
			p.sem.Release(1)
		}
	}()

	for i, st := range executors {
		kind := st.Kind()

		// Cancellation is cooperative: checked between stages only
		if err := ctx.Err(); err != nil {
			return nil, p.fail(tr, "", err)
		}

		if i == firstModel {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				return nil, p.fail(tr, kind, err)
			}
			held = true
		}

		if err := tr.ToStage(canonicalIndex(kind)); err != nil {
			return nil, p.fail(tr, kind, err)
		}

		stageStart := time.Now()
		out, err := st.Apply(ctx, buf)
		rec := metrics.StageRecord{
			RequestID:   requestID,
			Stage:       string(kind),
			Status:      metrics.StatusSuccess,
			Duration:    time.Since(stageStart),
			InputWidth:  buf.Width,
			InputHeight: buf.Height,
		}
		if err != nil {
			rec.Status = metrics.StatusError
			rec.ErrorMsg = err.Error()
			p.record(rec)
			return nil, p.fail(tr, kind, err)
		}
		rec.OutputWidth = out.Width
		rec.OutputHeight = out.Height
		p.record(rec)

		log.Debug("Stage complete", logging.StageFields(logging.StageMetrics{
			Stage:        string(kind),
			InputWidth:   buf.Width,
			InputHeight:  buf.Height,
			OutputWidth:  out.Width,
			OutputHeight: out.Height,
			Duration:     rec.Duration,
		}))

		buf = out

		if i == lastModel {
			p.sem.Release(1)
			held = false
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, p.fail(tr, "", err)
	}

	encodeStart := time.Now()
	encoded, err := imaging.EncodePNG(buf)
	p.recordPhase(requestID, metrics.PhaseEncode, encodeStart, buf.Width, buf.Height, err)
	if err != nil {
		return nil, p.fail(tr, "", err)
	}
	if err := tr.To(StateEncoded); err != nil {
		return nil, p.fail(tr, "", err)
	}

	res.encoded = encoded
	res.outWidth = buf.Width
	res.outHeight = buf.Height
	return res, nil
}

// fail transitions the tracker to Failed and wraps the cause with the state
// the request had reached.
func (p *Pipeline) fail(tr *Tracker, kind stage.Kind, cause error) error {
	at := tr.State()
	_ = tr.To(StateFailed)
	return &Error{Stage: kind, State: at, Err: cause}
}

// record forwards a stage record to the collector when one is configured.
func (p *Pipeline) record(rec metrics.StageRecord) {
	if p.collector != nil {
		p.collector.RecordStage(rec)
	}
}

// recordPhase records a decode/encode/persist phase outcome.
func (p *Pipeline) recordPhase(requestID, phase string, start time.Time, width, height int, err error) {
	if p.collector == nil {
		return
	}
	rec := metrics.StageRecord{
		RequestID:    requestID,
		Stage:        phase,
		Status:       metrics.StatusSuccess,
		Duration:     time.Since(start),
		OutputWidth:  width,
		OutputHeight: height,
	}
	if err != nil {
		rec.Status = metrics.StatusError
		rec.ErrorMsg = err.Error()
	}
	p.collector.RecordStage(rec)
}

// indexRecord queues an index row, logging failures instead of surfacing
// them. The blob store, not the index, is the durability contract.
func (p *Pipeline) indexRecord(ctx context.Context, log *logging.Logger, rec db.ArtifactRecord) {
	if p.index == nil {
		return
	}
	if err := p.index.InsertArtifact(ctx, rec); err != nil {
		log.Warnw("Failed to index artifact record",
			"artifact_id", rec.ID, "role", rec.Role, "error", err)
	}
}

// canonicalIndex returns a stage kind's position in the canonical order.
func canonicalIndex(k stage.Kind) int {
	for i, c := range stage.CanonicalOrder {
		if c == k {
			return i
		}
	}
	return len(stage.CanonicalOrder)
}

// sniffSource derives the content type and blob extension for raw input
// bytes. Detection happens before decode so even undecodable inputs persist
// under a sensible name.
func sniffSource(data []byte) (contentType, ext string) {
	contentType = http.DetectContentType(data)
	switch contentType {
	case "image/png":
		return contentType, "png"
	case "image/jpeg":
		return contentType, "jpeg"
	case "image/gif":
		return contentType, "gif"
	case "image/bmp":
		return contentType, "bmp"
	default:
		return contentType, "bin"
	}
}

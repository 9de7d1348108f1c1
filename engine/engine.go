// Package engine wires the pipeline to its remote collaborators and keeps the
// resulting trace records searchable and persisted.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Paranoid-AF/vctrace"
	"github.com/Paranoid-AF/vctrace/index"
	"github.com/Paranoid-AF/vctrace/pipeline"
	"github.com/Paranoid-AF/vctrace/remote"
	"github.com/Paranoid-AF/vctrace/sidecar"
)

// DefaultTopK is used when a search does not specify a limit.
const DefaultTopK = 10

// ErrInvalidRequest is returned for requests missing required fields.
var ErrInvalidRequest = errors.New("engine: invalid request")

// Collaborators are the model components a pipeline runs against.
// Nil fields are allowed; see pipeline.New.
type Collaborators struct {
	Encoder      vctrace.Encoder
	Generator    vctrace.LatentGenerator
	ImageDecoder vctrace.ImageDecoder
	AssetDecoder vctrace.AssetDecoder
}

// RemoteCollaborators builds HTTP clients for every configured endpoint.
// Endpoints left empty stay nil.
func RemoteCollaborators(cfg *vctrace.Config) Collaborators {
	apiKey := vctrace.ResolveRemoteAPIKey(cfg)
	timeout := time.Duration(cfg.Remote.TimeoutSeconds) * time.Second
	endpoint := func(url, model string) *remote.Client {
		return remote.NewClient(remote.Endpoint{BaseURL: url, APIKey: apiKey, Model: model, Timeout: timeout})
	}

	var c Collaborators
	if url := vctrace.ResolveEncoderURL(cfg); url != "" {
		c.Encoder = endpoint(url, cfg.Remote.EncoderModel)
	}
	if url := vctrace.ResolveGeneratorURL(cfg); url != "" {
		c.Generator = endpoint(url, cfg.Remote.GeneratorModel)
	}
	if url := cfg.Remote.ImageDecoderURL; url != "" {
		c.ImageDecoder = endpoint(url, cfg.Remote.GeneratorModel)
	}
	if url := cfg.Remote.AssetDecoderURL; url != "" {
		c.AssetDecoder = endpoint(url, cfg.Remote.GeneratorModel)
	}
	return c
}

// Engine runs generation requests and serves the traces they produce.
type Engine struct {
	config   *vctrace.Config
	pipeline *pipeline.Pipeline
	embedder *remote.TextEmbedder // nil = zero text vector

	index  *index.TraceIndex
	recent *index.RecordCache
	store  *sidecar.Store // nil = no persistence

	snapshotPath string
}

// NewEngine loads the user config and creates an engine with remote collaborators.
func NewEngine() (*Engine, error) {
	cfg, err := vctrace.LoadConfig()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = vctrace.DefaultConfig()
	}
	for _, w := range vctrace.ValidateConfig(cfg) {
		slog.Warn("config", "warning", w)
	}
	return New(cfg, RemoteCollaborators(cfg))
}

// New creates an engine from cfg running against collab.
func New(cfg *vctrace.Config, collab Collaborators) (*Engine, error) {
	if cfg == nil {
		cfg = vctrace.DefaultConfig()
	}

	e := &Engine{
		config:   cfg,
		pipeline: pipeline.New(collab.Encoder, collab.Generator, collab.ImageDecoder, collab.AssetDecoder),
		index: index.NewTraceIndex(vctrace.TraceVectorDim, index.Options{
			M:        cfg.Index.M,
			EfSearch: cfg.Index.EfSearch,
		}),
		recent:       index.NewRecordCache(time.Duration(cfg.Cache.TTLMinutes)*time.Minute, cfg.Cache.Capacity),
		snapshotPath: cfg.Index.SnapshotPath,
	}

	if vctrace.EmbeddingEnabled(cfg) {
		e.embedder = remote.NewTextEmbedder(
			vctrace.ResolveEmbeddingBaseURL(cfg),
			vctrace.ResolveEmbeddingAPIKey(cfg),
			cfg.Embedding.Model,
			vctrace.TextVectorDim(cfg),
		)
	}

	if path := vctrace.ResolveStorePath(cfg); path != "" {
		store, err := sidecar.OpenStore(path, cfg.Store.Bucket)
		if err != nil {
			e.recent.Close()
			return nil, err
		}
		e.store = store
		if err := e.rebuildIndex(context.Background()); err != nil {
			e.recent.Close()
			store.Close()
			return nil, err
		}
	} else if e.snapshotPath != "" {
		if err := e.index.LoadSnapshot(e.snapshotPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to load index snapshot", "path", e.snapshotPath, "error", err)
		}
	}

	slog.Debug("engine ready", "traces", e.index.Len(), "persistent", e.store != nil)
	return e, nil
}

func (e *Engine) rebuildIndex(ctx context.Context) error {
	return e.store.ForEach(ctx, func(r *vctrace.TraceRecord) error {
		if err := e.index.AddRecord(r); err != nil {
			slog.Warn("skipping stored trace", "request_id", r.RequestID, "error", err)
		}
		return nil
	})
}

// Close saves the index snapshot and releases the cache and store.
func (e *Engine) Close() {
	if e.snapshotPath != "" {
		if err := e.index.SaveSnapshot(e.snapshotPath); err != nil {
			slog.Warn("failed to save index snapshot", "path", e.snapshotPath, "error", err)
		}
	}
	e.recent.Close()
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
	}
}

// Generate runs the pipeline for req and records the resulting trace.
func (e *Engine) Generate(ctx context.Context, req *vctrace.GenerateRequest) (*pipeline.Result, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: generate payload is required", ErrInvalidRequest)
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	text, err := e.textVector(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := e.pipeline.Run(ctx, pipeline.RunRequest{
		Image: vctrace.Image{
			Pix:    req.Image,
			Width:  req.ImageWidth,
			Height: req.ImageHeight,
			Stride: req.ImageStride,
		},
		TextVector:     text,
		Prompt:         req.Prompt,
		RequestID:      requestID,
		ParentAssetID:  req.ParentAssetID,
		Seed:           req.Seed,
		WantImage:      req.WantImage,
		WantAsset:      req.WantAsset,
		Width:          req.Width,
		Height:         req.Height,
		GuidanceScale:  req.GuidanceScale,
		DiffusionSteps: req.DiffusionSteps,
	})
	if err != nil {
		return nil, err
	}

	if err := e.record(ctx, res.Trace); err != nil {
		return nil, err
	}
	return res, nil
}

// textVector picks the request override, then the embedder, then a zero vector.
func (e *Engine) textVector(ctx context.Context, req *vctrace.GenerateRequest) (vctrace.FixedVector, error) {
	if len(req.TextVector) > 0 {
		return vctrace.VectorOf(req.TextVector...), nil
	}
	if e.embedder != nil {
		return e.embedder.Embed(ctx, req.Prompt)
	}
	return vctrace.NewFixedVector(vctrace.TextVectorDim(e.config)), nil
}

// record sanitizes r and adds it to the cache, index and store. A record
// that breaks the dimensional contract is kept out of the store.
func (e *Engine) record(ctx context.Context, r *vctrace.TraceRecord) error {
	if vctrace.SanitizePrompts(e.config) {
		r.TextPrompt = sidecar.RedactPrompt(r.TextPrompt)
	}
	if err := e.index.AddRecord(r); err != nil {
		return err
	}
	e.recent.Put(r)

	if e.store == nil {
		return nil
	}
	if err := r.CheckContract(); err != nil {
		slog.Warn("trace not persisted", "request_id", r.RequestID, "error", err)
		return nil
	}
	return e.store.Put(ctx, r)
}

// Put stores an externally produced trace record.
func (e *Engine) Put(ctx context.Context, doc *vctrace.Document) (*vctrace.TraceRecord, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: record is required", ErrInvalidRequest)
	}
	r, err := doc.Record()
	if err != nil {
		return nil, err
	}
	if r.RequestID == "" {
		return nil, fmt.Errorf("%w: request_id is required", ErrInvalidRequest)
	}
	if err := r.CheckContract(); err != nil {
		return nil, err
	}
	if err := e.record(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns the trace record for requestID from the cache or the store.
func (e *Engine) Get(ctx context.Context, requestID string) (*vctrace.TraceRecord, error) {
	if requestID == "" {
		return nil, fmt.Errorf("%w: request_id is required", ErrInvalidRequest)
	}
	if r := e.recent.Get(requestID); r != nil {
		return r, nil
	}
	if e.store == nil {
		return nil, vctrace.ErrNotFound
	}
	r, err := e.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	e.recent.Put(r)
	return r, nil
}

// Search returns the traces most similar to vec.
func (e *Engine) Search(_ context.Context, vec []float32, topK int) ([]vctrace.Match, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: vector is required", ErrInvalidRequest)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return e.index.Search(vctrace.VectorOf(vec...), topK)
}

// Delete removes requestID everywhere. It returns vctrace.ErrNotFound when
// the trace was not known.
func (e *Engine) Delete(ctx context.Context, requestID string) error {
	if requestID == "" {
		return fmt.Errorf("%w: request_id is required", ErrInvalidRequest)
	}
	found := e.index.Remove(requestID)
	if e.recent.Get(requestID) != nil {
		found = true
		e.recent.Delete(requestID)
	}
	if e.store != nil {
		err := e.store.Delete(ctx, requestID)
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, vctrace.ErrNotFound):
			return err
		}
	}
	if !found {
		return vctrace.ErrNotFound
	}
	return nil
}

// Len returns the number of indexed traces.
func (e *Engine) Len() int {
	return e.index.Len()
}

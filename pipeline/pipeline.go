// Package pipeline composes the encode → generate → decode steps into one
// traceable call and derives the trace vector of the result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Paranoid-AF/vctrace"
)

// RunRequest holds the inputs of one pipeline run.
type RunRequest struct {
	// Image is the raw RGB reference image.
	Image vctrace.Image
	// TextVector is the precomputed text conditioning vector.
	TextVector vctrace.FixedVector

	Prompt        string
	RequestID     string
	ParentAssetID string
	Seed          int64

	WantImage bool
	WantAsset bool
	// Width and Height are the target output size.
	Width  int
	Height int

	GuidanceScale  float32
	DiffusionSteps int
}

// Result is the outcome of a pipeline run.
type Result struct {
	Trace *vctrace.TraceRecord
	// Image is the RGBA output; empty when not requested or no decoder is set.
	Image []byte
	// Asset is the serialized asset; empty when not requested or no decoder is set.
	Asset []byte
}

// Pipeline sequences the collaborators. The encoder and latent generator are
// mandatory; a missing decoder only leaves its output empty.
type Pipeline struct {
	encoder      vctrace.Encoder
	generator    vctrace.LatentGenerator
	imageDecoder vctrace.ImageDecoder
	assetDecoder vctrace.AssetDecoder
}

// New creates a pipeline. Any argument may be nil; Run reports a missing
// encoder or generator.
func New(enc vctrace.Encoder, gen vctrace.LatentGenerator, img vctrace.ImageDecoder, asset vctrace.AssetDecoder) *Pipeline {
	return &Pipeline{
		encoder:      enc,
		generator:    gen,
		imageDecoder: img,
		assetDecoder: asset,
	}
}

// Run executes one generation request and returns its trace record with the
// optional decoded buffers. Errors returned by collaborators are passed
// through unchanged.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*Result, error) {
	if p.encoder == nil {
		return nil, fmt.Errorf("%w: encoder", vctrace.ErrMissingCollaborator)
	}
	if p.generator == nil {
		return nil, fmt.Errorf("%w: latent generator", vctrace.ErrMissingCollaborator)
	}
	if err := req.Image.Validate(); err != nil {
		return nil, err
	}

	trace := vctrace.NewTraceRecord()
	trace.RequestID = req.RequestID
	trace.ParentAssetID = req.ParentAssetID
	trace.TextPrompt = req.Prompt
	trace.Seed = req.Seed
	trace.Width = req.Width
	trace.Height = req.Height
	trace.GuidanceScale = req.GuidanceScale
	trace.DiffusionSteps = req.DiffusionSteps
	trace.EncoderModel = vctrace.ModelName(p.encoder)
	trace.GeneratorModel = vctrace.ModelName(p.generator)

	emb, err := p.encoder.Encode(ctx, req.Image.Pix, req.Image.Width, req.Image.Height, req.Image.Stride)
	if err != nil {
		return nil, err
	}
	trace.VisualInput = emb
	trace.VisualInput.Global.NormalizeL2()

	latents, err := p.generator.Generate(ctx, trace.VisualInput, req.TextVector, req.Seed)
	if err != nil {
		return nil, err
	}
	trace.Latents = latents

	res := &Result{Trace: trace}

	if req.WantImage && p.imageDecoder != nil {
		res.Image, err = p.imageDecoder.DecodeImage(ctx, trace.Latents, req.Width, req.Height)
		if err != nil {
			return nil, err
		}
		if want := req.Width * req.Height * 4; len(res.Image) != want {
			slog.Warn("image decoder returned unexpected buffer size",
				"request_id", req.RequestID, "got", len(res.Image), "want", want)
		}
	}

	if req.WantAsset && p.assetDecoder != nil {
		res.Asset, err = p.assetDecoder.DecodeAsset(ctx, trace.Latents)
		if err != nil {
			return nil, err
		}
	}

	BuildTraceVector(trace)

	if err := trace.CheckContract(); err != nil {
		slog.Warn("collaborator output deviates from dimensional contract",
			"request_id", req.RequestID, "error", err)
	}

	slog.Debug("pipeline run complete", "request_id", req.RequestID,
		"image_bytes", len(res.Image), "asset_bytes", len(res.Asset))
	return res, nil
}

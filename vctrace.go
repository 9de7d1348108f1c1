// Package vctrace defines the data contract shared by visual-generation
// pipelines: fixed-dimensional embeddings, latent codes, and the provenance
// trace recorded for every generated asset.
//
// The dimensions below are a versioned interface. Changing any of them breaks
// every downstream index or decoder that consumes stored traces.
package vctrace

import (
	"errors"
	"fmt"
)

const (
	// ContractVersion identifies the dimensional contract below.
	ContractVersion = 1

	// VisualEmbeddingDim is the size of the global visual descriptor.
	VisualEmbeddingDim = 1024
	// ImageLatentDim is the size of the image latent code.
	ImageLatentDim = 256
	// AssetLatentDim is the size of the 3D asset latent code.
	AssetLatentDim = 384
	// StyleLatentDim is the size of the style code (palette, lighting, mood).
	StyleLatentDim = 64
	// TraceVectorDim is the size of the compact trace used for similarity search.
	TraceVectorDim = 128
)

// VisualEmbedding is an encoder's output: one global embedding plus optional
// patch tokens whose count and size are up to the encoder.
type VisualEmbedding struct {
	// Global is the image-level descriptor, VisualEmbeddingDim long.
	Global FixedVector
	// PatchTokens holds per-patch descriptors, possibly none.
	PatchTokens []FixedVector
}

// NewVisualEmbedding returns a zeroed embedding sized to the contract.
func NewVisualEmbedding() VisualEmbedding {
	return VisualEmbedding{Global: NewFixedVector(VisualEmbeddingDim)}
}

// Clone returns a deep copy.
func (e VisualEmbedding) Clone() VisualEmbedding {
	out := VisualEmbedding{Global: e.Global.Clone()}
	if e.PatchTokens != nil {
		out.PatchTokens = make([]FixedVector, len(e.PatchTokens))
		for i, p := range e.PatchTokens {
			out.PatchTokens[i] = p.Clone()
		}
	}
	return out
}

// LatentBundle carries the latent codes handed to decoders.
type LatentBundle struct {
	ImageLatent FixedVector // [ImageLatentDim]
	AssetLatent FixedVector // [AssetLatentDim]
	StyleLatent FixedVector // [StyleLatentDim]
}

// NewLatentBundle returns a zeroed bundle sized to the contract.
func NewLatentBundle() LatentBundle {
	return LatentBundle{
		ImageLatent: NewFixedVector(ImageLatentDim),
		AssetLatent: NewFixedVector(AssetLatentDim),
		StyleLatent: NewFixedVector(StyleLatentDim),
	}
}

// Clone returns a deep copy.
func (b LatentBundle) Clone() LatentBundle {
	return LatentBundle{
		ImageLatent: b.ImageLatent.Clone(),
		AssetLatent: b.AssetLatent.Clone(),
		StyleLatent: b.StyleLatent.Clone(),
	}
}

// TraceRecord is the provenance record of one generation request.
// It owns its embedding and latents by value and references no collaborator.
type TraceRecord struct {
	// RequestID is the external request identifier.
	RequestID string
	// ParentAssetID optionally names the upstream asset or source.
	ParentAssetID string
	// GeneratorModel and EncoderModel are opaque model names.
	GeneratorModel string
	EncoderModel   string

	// TextPrompt is stored as given; callers sanitize before storage.
	TextPrompt string

	// VisualInput is the conditioning embedding taken from reference imagery.
	VisualInput VisualEmbedding
	// Latents is the bundle used for decoding.
	Latents LatentBundle
	// TraceVector is the compact fingerprint for similarity search.
	TraceVector FixedVector

	// Numeric parameters, stored as supplied.
	Seed           int64
	Width          int
	Height         int
	GuidanceScale  float32
	DiffusionSteps int
}

// NewTraceRecord returns an empty record whose vectors are sized to the contract.
func NewTraceRecord() *TraceRecord {
	return &TraceRecord{
		VisualInput: NewVisualEmbedding(),
		Latents:     NewLatentBundle(),
		TraceVector: NewFixedVector(TraceVectorDim),
	}
}

// Clone returns a deep copy of the record.
func (r *TraceRecord) Clone() *TraceRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.VisualInput = r.VisualInput.Clone()
	out.Latents = r.Latents.Clone()
	out.TraceVector = r.TraceVector.Clone()
	return &out
}

// CheckContract reports every vector whose dimension deviates from the
// contract. The returned error wraps ErrDimensionMismatch.
func (r *TraceRecord) CheckContract() error {
	checks := []struct {
		name string
		got  int
		want int
	}{
		{"visual_input.global", r.VisualInput.Global.Dim(), VisualEmbeddingDim},
		{"latents.image_latent", r.Latents.ImageLatent.Dim(), ImageLatentDim},
		{"latents.asset_latent", r.Latents.AssetLatent.Dim(), AssetLatentDim},
		{"latents.style_latent", r.Latents.StyleLatent.Dim(), StyleLatentDim},
		{"trace_vector", r.TraceVector.Dim(), TraceVectorDim},
	}
	var errs []error
	for _, c := range checks {
		if c.got != c.want {
			errs = append(errs, fmt.Errorf("%w: %s has dim %d, want %d", ErrDimensionMismatch, c.name, c.got, c.want))
		}
	}
	return errors.Join(errs...)
}

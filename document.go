package vctrace

import "fmt"

// Document is the sidecar form of a TraceRecord. It preserves every field of
// the record and is tagged for both JSON and TOML encoding.
type Document struct {
	ContractVersion int `json:"contract_version" toml:"contract_version"`

	RequestID      string `json:"request_id" toml:"request_id"`
	ParentAssetID  string `json:"parent_asset_id,omitempty" toml:"parent_asset_id"`
	GeneratorModel string `json:"generator_model,omitempty" toml:"generator_model"`
	EncoderModel   string `json:"encoder_model,omitempty" toml:"encoder_model"`
	TextPrompt     string `json:"text_prompt" toml:"text_prompt"`

	Seed           int64   `json:"seed" toml:"seed"`
	Width          int     `json:"width" toml:"width"`
	Height         int     `json:"height" toml:"height"`
	GuidanceScale  float32 `json:"guidance_scale" toml:"guidance_scale"`
	DiffusionSteps int     `json:"diffusion_steps" toml:"diffusion_steps"`

	VisualGlobal []float32   `json:"visual_global" toml:"visual_global"`
	PatchTokens  [][]float32 `json:"patch_tokens,omitempty" toml:"patch_tokens"`
	ImageLatent  []float32   `json:"image_latent" toml:"image_latent"`
	AssetLatent  []float32   `json:"asset_latent" toml:"asset_latent"`
	StyleLatent  []float32   `json:"style_latent" toml:"style_latent"`
	TraceVector  []float32   `json:"trace_vector" toml:"trace_vector"`
}

// ToDocument copies r into its sidecar form.
func ToDocument(r *TraceRecord) *Document {
	doc := &Document{
		ContractVersion: ContractVersion,
		RequestID:       r.RequestID,
		ParentAssetID:   r.ParentAssetID,
		GeneratorModel:  r.GeneratorModel,
		EncoderModel:    r.EncoderModel,
		TextPrompt:      r.TextPrompt,
		Seed:            r.Seed,
		Width:           r.Width,
		Height:          r.Height,
		GuidanceScale:   r.GuidanceScale,
		DiffusionSteps:  r.DiffusionSteps,
		VisualGlobal:    r.VisualInput.Global.Clone().Values(),
		ImageLatent:     r.Latents.ImageLatent.Clone().Values(),
		AssetLatent:     r.Latents.AssetLatent.Clone().Values(),
		StyleLatent:     r.Latents.StyleLatent.Clone().Values(),
		TraceVector:     r.TraceVector.Clone().Values(),
	}
	if len(r.VisualInput.PatchTokens) > 0 {
		doc.PatchTokens = make([][]float32, len(r.VisualInput.PatchTokens))
		for i, p := range r.VisualInput.PatchTokens {
			doc.PatchTokens[i] = p.Clone().Values()
		}
	}
	return doc
}

// Record converts the document back into a TraceRecord. Vector lengths are
// taken from the document as-is; use CheckContract to enforce dimensions.
func (d *Document) Record() (*TraceRecord, error) {
	if d.ContractVersion != ContractVersion {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrContractVersion, d.ContractVersion, ContractVersion)
	}
	r := &TraceRecord{
		RequestID:      d.RequestID,
		ParentAssetID:  d.ParentAssetID,
		GeneratorModel: d.GeneratorModel,
		EncoderModel:   d.EncoderModel,
		TextPrompt:     d.TextPrompt,
		VisualInput:    VisualEmbedding{Global: VectorOf(d.VisualGlobal...)},
		Latents: LatentBundle{
			ImageLatent: VectorOf(d.ImageLatent...),
			AssetLatent: VectorOf(d.AssetLatent...),
			StyleLatent: VectorOf(d.StyleLatent...),
		},
		TraceVector:    VectorOf(d.TraceVector...),
		Seed:           d.Seed,
		Width:          d.Width,
		Height:         d.Height,
		GuidanceScale:  d.GuidanceScale,
		DiffusionSteps: d.DiffusionSteps,
	}
	if len(d.PatchTokens) > 0 {
		r.VisualInput.PatchTokens = make([]FixedVector, len(d.PatchTokens))
		for i, p := range d.PatchTokens {
			r.VisualInput.PatchTokens[i] = VectorOf(p...)
		}
	}
	return r, nil
}

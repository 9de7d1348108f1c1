package pipeline

import "github.com/Paranoid-AF/vctrace"

// Mixing weights of each source in the trace vector.
const (
	VisualWeight = 1.0
	ImageWeight  = 0.5
	AssetWeight  = 0.5
	StyleWeight  = 0.25
)

// BuildTraceVector overwrites trace.TraceVector with the deterministic
// fingerprint of the record, keeping the vector's dimension D.
//
// The global embedding and the image and asset latents are truncated to D;
// the style latent wraps around index i mod D over its whole length. The
// result is L2-normalized. Stored traces are only comparable if this mixing
// stays bit-for-bit stable.
func BuildTraceVector(trace *vctrace.TraceRecord) {
	tv := trace.TraceVector.Values()
	d := len(tv)
	if d == 0 {
		return
	}
	trace.TraceVector.Clear()

	mixTruncated(tv, trace.VisualInput.Global.Values(), VisualWeight)
	mixTruncated(tv, trace.Latents.ImageLatent.Values(), ImageWeight)
	mixTruncated(tv, trace.Latents.AssetLatent.Values(), AssetWeight)

	for i, x := range trace.Latents.StyleLatent.Values() {
		tv[i%d] += float32(StyleWeight * x)
	}

	trace.TraceVector.NormalizeL2()
}

// Products are converted to float32 explicitly so the compiler cannot fuse
// them into a multiply-add, which would round differently per architecture.
func mixTruncated(dst, src []float32, weight float32) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += float32(weight * src[i])
	}
}

package vctrace

import (
	"context"
	"fmt"
	"math"
)

// Encoder turns a raw RGB image into a visual embedding.
// The returned Global vector must be VisualEmbeddingDim long.
type Encoder interface {
	// Encode reads tightly packed or strided HWC RGB bytes. A stride of 0
	// means width*3.
	Encode(ctx context.Context, rgb []byte, width, height, stride int) (VisualEmbedding, error)
}

// LatentGenerator produces latent codes from a visual embedding and a
// precomputed text vector. The same seed and inputs should yield the same
// bundle; that is the implementation's responsibility.
type LatentGenerator interface {
	Generate(ctx context.Context, emb VisualEmbedding, text FixedVector, seed int64) (LatentBundle, error)
}

// ImageDecoder renders latents to an RGBA buffer of exactly width*height*4 bytes.
type ImageDecoder interface {
	DecodeImage(ctx context.Context, latents LatentBundle, width, height int) ([]byte, error)
}

// AssetDecoder renders latents to a serialized asset (e.g. GLB, USDZ).
type AssetDecoder interface {
	DecodeAsset(ctx context.Context, latents LatentBundle) ([]byte, error)
}

// Modeler is implemented by collaborators that can name their model.
type Modeler interface {
	Model() string
}

// ModelName returns c's model name if it implements Modeler, else "".
func ModelName(c any) string {
	if m, ok := c.(Modeler); ok {
		return m.Model()
	}
	return ""
}

// Image is a borrowed RGB buffer with its geometry.
type Image struct {
	Pix    []byte
	Width  int
	Height int
	// Stride is the row length in bytes; 0 means Width*3.
	Stride int
}

// RowStride returns the effective row length in bytes.
func (im Image) RowStride() int {
	if im.Stride == 0 {
		return im.Width * 3
	}
	return im.Stride
}

// Validate checks that Pix covers Height rows of RowStride bytes.
func (im Image) Validate() error {
	if im.Width < 0 || im.Height < 0 || im.Stride < 0 {
		return fmt.Errorf("%w: negative geometry %dx%d stride %d", ErrInvalidImage, im.Width, im.Height, im.Stride)
	}
	if im.Width > math.MaxInt/3 {
		return fmt.Errorf("%w: width %d too large", ErrInvalidImage, im.Width)
	}
	if im.Stride != 0 && im.Stride < im.Width*3 {
		return fmt.Errorf("%w: stride %d shorter than row of %d pixels", ErrInvalidImage, im.Stride, im.Width)
	}
	// Height*RowStride may overflow; compare against the buffer per row instead.
	if im.Height > 0 && im.RowStride() > len(im.Pix)/im.Height {
		return fmt.Errorf("%w: have %d bytes, need %d rows of %d", ErrInvalidImage, len(im.Pix), im.Height, im.RowStride())
	}
	return nil
}

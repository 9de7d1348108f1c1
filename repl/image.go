package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/Paranoid-AF/vctrace"
)

// loadRGB decodes a PNG or JPEG file into a tightly packed RGB buffer.
func loadRGB(path string) (vctrace.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return vctrace.Image{}, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return vctrace.Image{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, 0, w*h*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			pix = append(pix, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
	}

	return vctrace.Image{Pix: pix, Width: w, Height: h}, nil
}

// outputPath names a generated file next to the input image:
// dir/cat.png with id "abc" and ext ".asset" becomes dir/cat-abc.asset.
func outputPath(input, requestID, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), stem+"-"+requestID+ext)
}

// saveRGBA writes a decoded RGBA buffer as a PNG file.
func saveRGBA(path string, pix []byte, width, height int) error {
	if width <= 0 || height <= 0 || len(pix) != width*height*4 {
		return fmt.Errorf("image buffer is %d bytes, want %dx%dx4", len(pix), width, height)
	}
	img := &image.RGBA{Pix: pix, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

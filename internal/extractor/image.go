package extractor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// ImageOptions controls how frames are shrunk before they are sent to a model
type ImageOptions struct {
	Width   int
	Height  int
	Quality int
}

// DefaultImageOptions keeps frames small enough to stay cheap per call.
func DefaultImageOptions() ImageOptions {
	return ImageOptions{Width: 256, Height: 256, Quality: 30}
}

// LoadImage reads path and downscales it. Files that cannot be decoded are
// returned as they are.
func LoadImage(path string, opts ImageOptions) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	scaled, err := Downscale(raw, opts)
	if err != nil {
		return raw, nil
	}
	return scaled, nil
}

// Downscale resizes an encoded image to opts.Width x opts.Height and
// re-encodes it as JPEG.
func Downscale(data []byte, opts ImageOptions) ([]byte, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = DefaultImageOptions().Width, DefaultImageOptions().Height
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultImageOptions().Quality
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

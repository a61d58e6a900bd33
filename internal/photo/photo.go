// Package photo prepares receipt photos for storage: decode, scale down to
// fit a bounding box and re-encode as JPEG.
package photo

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"cards/internal/core"
)

const (
	DefaultMaxDimension = 500
	DefaultQuality      = 50
	DefaultMaxPixels    = 40_000_000
)

// Processor holds the output constraints.
type Processor struct {
	MaxDimension int
	Quality      int
	MaxBytes     int64 // upload size limit, 0 disables the check
	MaxPixels    int   // decoded width*height limit
}

func NewProcessor(maxDimension, quality int, maxBytes int64) *Processor {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &Processor{MaxDimension: maxDimension, Quality: quality, MaxBytes: maxBytes, MaxPixels: DefaultMaxPixels}
}

// FitWithin scales (w, h) to fit inside a bound x bound box keeping the aspect
// ratio. Images already inside the box are returned unchanged.
func FitWithin(w, h, bound int) (int, int) {
	if w <= bound && h <= bound {
		return w, h
	}
	if w >= h {
		nh := h * bound / w
		if nh < 1 {
			nh = 1
		}
		return bound, nh
	}
	nw := w * bound / h
	if nw < 1 {
		nw = 1
	}
	return nw, bound
}

// Process decodes raw (JPEG, PNG, GIF or WebP) and returns the scaled JPEG.
func (p *Processor) Process(raw []byte) ([]byte, error) {
	if p.MaxBytes > 0 && int64(len(raw)) > p.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", core.ErrPhotoTooLarge, len(raw), p.MaxBytes)
	}
	// The header is checked first so that a small file declaring a huge
	// canvas is rejected before its bitmap is allocated.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidPhoto, err)
	}
	if p.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(p.MaxPixels) {
		return nil, fmt.Errorf("%w: %dx%d pixels (max %d)", core.ErrPhotoTooLarge, cfg.Width, cfg.Height, p.MaxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidPhoto, err)
	}

	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), p.MaxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

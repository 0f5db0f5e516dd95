// Package imaging shrinks uploaded photos to web-sized JPEG data URLs.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"bistro/internal/model"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxWidth is used when the caller passes a non-positive width.
	DefaultMaxWidth = 800

	// Quality is the JPEG quality of every processed image.
	Quality = 70

	// MaxCanvasSide bounds either side of the output canvas.
	MaxCanvasSide = 8192

	// MaxSourcePixels bounds the decoded size of an input image.
	MaxSourcePixels = 40_000_000

	dataURLPrefix = "data:image/jpeg;base64,"
)

// Processor resizes and re-encodes images. It holds no state and is safe for
// concurrent use.
type Processor struct{}

// NewProcessor creates a new image processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Process decodes data, scales it down to at most maxWidth pixels wide keeping
// the aspect ratio, and returns it as a JPEG data URL.
func (p *Processor) Process(data []byte, maxWidth int) (string, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}

	// Bound the pixel count from the header before decoding.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrImageDecode, err)
	}
	if cfg.Width < 1 || cfg.Height < 1 || int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return "", fmt.Errorf("%w: %dx%d %s source", model.ErrImageCanvas, cfg.Width, cfg.Height, format)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrImageDecode, err)
	}

	bounds := src.Bounds()
	width, height := TargetSize(bounds.Dx(), bounds.Dy(), maxWidth)
	if width < 1 || height < 1 || width > MaxCanvasSide || height > MaxCanvasSide {
		return "", fmt.Errorf("%w: %dx%d %s image", model.ErrImageCanvas, width, height, format)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// TargetSize returns the output dimensions for an image of w by h pixels.
// Images narrower than maxWidth keep their size; wider ones are scaled to
// maxWidth with the height rounded down, but never below one pixel.
func TargetSize(w, h, maxWidth int) (int, int) {
	if w <= maxWidth {
		return w, h
	}
	height := int(int64(h) * int64(maxWidth) / int64(w))
	if height < 1 && h > 0 {
		height = 1
	}
	return maxWidth, height
}

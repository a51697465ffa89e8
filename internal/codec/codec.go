// Package codec decodes still image data for animation frames.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels is the default limit on decoded frame area.
const DefaultMaxPixels = 64 << 20

// ErrTooLarge is returned when an image's dimensions exceed the limit.
var ErrTooLarge = errors.New("image too large")

// Codec decodes PNG, JPEG, GIF, BMP, TIFF and WebP images. Only the first
// frame of an animated GIF is used.
type Codec struct {
	// MaxPixels limits width*height of a decoded image.
	// Zero uses DefaultMaxPixels.
	MaxPixels int
}

// Decode reads an image from r.
func (c Codec) Decode(r io.Reader) (image.Image, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	max := c.MaxPixels
	if max <= 0 {
		max = DefaultMaxPixels
	}
	if cfg.Width*cfg.Height > max {
		return nil, fmt.Errorf("%w: %s %dx%d", ErrTooLarge, format, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", format, err)
	}
	return img, nil
}

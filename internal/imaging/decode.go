// Package imaging decodes encoded frame bytes into grayscale frames.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"nwbview/pkg/imagestack"
)

// ColorMode selects how decoded pixels are reduced to frame samples.
type ColorMode string

const (
	// Grayscale converts to 8-bit luma with ITU-R 601 weights.
	Grayscale ColorMode = "grayscale"
)

var (
	// ErrUnknownFormat wraps image.ErrFormat for bytes no registered codec accepts.
	ErrUnknownFormat = fmt.Errorf("imaging: %w", image.ErrFormat)
	// ErrColorMode is returned for unsupported color modes.
	ErrColorMode = errors.New("imaging: unsupported color mode")
)

// ParseColorMode validates a mode name; "" means Grayscale.
func ParseColorMode(s string) (ColorMode, error) {
	switch ColorMode(s) {
	case "", Grayscale:
		return Grayscale, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrColorMode, s)
	}
}

// Decoder turns encoded images into frames.
type Decoder struct {
	mode ColorMode
}

// NewDecoder returns a decoder for mode.
func NewDecoder(mode ColorMode) (*Decoder, error) {
	m, err := ParseColorMode(string(mode))
	if err != nil {
		return nil, err
	}
	return &Decoder{mode: m}, nil
}

// Mode returns the configured color mode.
func (d *Decoder) Mode() ColorMode { return d.mode }

// DecodeBytes decodes data and returns the frame and the detected format name.
func (d *Decoder) DecodeBytes(data []byte) (imagestack.Frame, string, error) {
	return d.Decode(bytes.NewReader(data))
}

// Decode reads one encoded image from r.
func (d *Decoder) Decode(r io.Reader) (imagestack.Frame, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return imagestack.Frame{}, "", ErrUnknownFormat
		}
		return imagestack.Frame{}, format, fmt.Errorf("decode %s: %w", format, err)
	}
	return toGray(img), format, nil
}

func toGray(img image.Image) imagestack.Frame {
	b := img.Bounds()
	frame := imagestack.NewFrame(b.Dy(), b.Dx())
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
			copy(frame.Pix[y*b.Dx():], row)
		}
		return frame
	}
	gray := &image.Gray{Pix: frame.Pix, Stride: b.Dx(), Rect: image.Rect(0, 0, b.Dx(), b.Dy())}
	draw.Draw(gray, gray.Rect, img, b.Min, draw.Src)
	return frame
}

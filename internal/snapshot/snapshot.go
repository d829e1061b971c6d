// Package snapshot encodes single captured frames as still images.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/junsooki/screencap/internal/capture"
)

// Format names an output image format.
type Format string

const (
	FormatRaw  Format = "raw"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// DefaultQuality is used for JPEG when no quality is given.
const DefaultQuality = 80

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown image format")

// ParseFormat accepts raw, png, jpeg and jpg, case-insensitively. An empty
// string selects raw RGBA.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "raw", "rgba":
		return FormatRaw, nil
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	}
	return "application/octet-stream"
}

// Encoder turns a frame into bytes.
type Encoder interface {
	Encode(f capture.Frame) ([]byte, error)
}

// New returns the encoder for format. quality only applies to JPEG and is
// clamped to 1..100; zero means DefaultQuality.
func New(format Format, quality int) Encoder {
	switch format {
	case FormatPNG:
		return pngEncoder{}
	case FormatJPEG:
		return NewJPEGEncoder(quality)
	}
	return rawEncoder{}
}

type rawEncoder struct{}

func (rawEncoder) Encode(f capture.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f.Data, nil
}

type pngEncoder struct{}

func (pngEncoder) Encode(f capture.Frame) ([]byte, error) {
	if err := check(f); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, f.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JPEGEncoder encodes frames as JPEG.
type JPEGEncoder struct {
	quality int
}

func NewJPEGEncoder(quality int) *JPEGEncoder {
	if quality == 0 {
		quality = DefaultQuality
	}
	quality = max(1, min(quality, 100))
	return &JPEGEncoder{quality: quality}
}

func (e *JPEGEncoder) Quality() int { return e.quality }

func (e *JPEGEncoder) Encode(f capture.Frame) ([]byte, error) {
	if err := check(f); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(f.Data) / 8)
	if err := jpeg.Encode(&buf, f.Image(), &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func check(f capture.Frame) error {
	if f.Empty() {
		return errors.New("cannot encode the empty frame")
	}
	return f.Validate()
}

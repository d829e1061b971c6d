package capture

import (
	"fmt"
	"image"
	"time"
)

// BytesPerPixel is the size of one RGBA8 pixel.
const BytesPerPixel = 4

// MaxDimension caps requested target widths and heights.
const MaxDimension = 16384

// Frame is one captured snapshot: tightly packed RGBA8 rows, no padding.
// Pixel (x, y) channel c lives at Data[4*(y*Width+x)+c].
//
// A Frame is never mutated after creation. Whoever receives it owns it.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Seq       uint64
	Timestamp time.Time
}

// EmptyFrame returns the zero-sized sentinel frame.
func EmptyFrame() Frame {
	return Frame{}
}

// Empty reports whether f is the sentinel frame.
func (f Frame) Empty() bool {
	return f.Width == 0 && f.Height == 0 && len(f.Data) == 0
}

// Validate checks that the buffer length matches the dimensions.
func (f Frame) Validate() error {
	if f.Empty() {
		return nil
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * BytesPerPixel; len(f.Data) != want {
		return fmt.Errorf("frame %dx%d: have %d bytes, want %d", f.Width, f.Height, len(f.Data), want)
	}
	return nil
}

// Clone returns a deep copy of f.
func (f Frame) Clone() Frame {
	c := f
	if f.Data != nil {
		c.Data = make([]byte, len(f.Data))
		copy(c.Data, f.Data)
	}
	return c
}

// Image returns an *image.RGBA view sharing f's buffer. Callers must not
// write to it.
func (f Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Data,
		Stride: f.Width * BytesPerPixel,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// PackRGBA copies img into a tightly packed buffer, dropping any stride
// padding and sub-image offset.
func PackRGBA(img *image.RGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rowLen := w * BytesPerPixel
	start := img.PixOffset(b.Min.X, b.Min.Y)
	if img.Stride == rowLen {
		out := make([]byte, rowLen*h)
		copy(out, img.Pix[start:start+rowLen*h])
		return out
	}
	out := make([]byte, rowLen*h)
	for y := 0; y < h; y++ {
		src := start + y*img.Stride
		copy(out[y*rowLen:(y+1)*rowLen], img.Pix[src:src+rowLen])
	}
	return out
}

// FrameFromImage builds a Frame from img.
func FrameFromImage(img *image.RGBA) Frame {
	b := img.Bounds()
	return Frame{
		Data:      PackRGBA(img),
		Width:     b.Dx(),
		Height:    b.Dy(),
		Timestamp: time.Now(),
	}
}

// Unpremultiply converts premultiplied RGBA8 pixels to straight alpha in
// place. Frames always carry straight alpha.
func Unpremultiply(pix []byte) {
	for i := 0; i+3 < len(pix); i += BytesPerPixel {
		a := uint32(pix[i+3])
		if a == 0 || a == 0xff {
			continue
		}
		for c := i; c < i+3; c++ {
			pix[c] = uint8(min((uint32(pix[c])*0xff+a/2)/a, 0xff))
		}
	}
}

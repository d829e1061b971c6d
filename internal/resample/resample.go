// Package resample scales packed RGBA8 frame buffers with a Lanczos-3
// convolution filter.
package resample

import (
	"image"
	"math"
	"sync"

	"golang.org/x/image/draw"
)

// Lanczos3 is the windowed sinc kernel with three lobes.
var Lanczos3 = &draw.Kernel{Support: 3, At: lanczos3}

func lanczos3(t float64) float64 {
	if t < 0 {
		t = -t
	}
	if t < 1e-9 {
		return 1
	}
	if t >= 3 {
		return 0
	}
	pt := math.Pi * t
	return 3 * math.Sin(pt) * math.Sin(pt/3) / (pt * pt)
}

// Resize scales src (sw x sh) to dw x dh and returns a new packed buffer of
// exactly dw*dh*4 bytes. All dimensions must be positive.
func Resize(src []byte, sw, sh, dw, dh int) []byte {
	return scale(Lanczos3.NewScaler(dw, dh, sw, sh), src, sw, sh, dw, dh)
}

// scale filters every channel on its own. Frames carry straight alpha, while
// draw treats *image.RGBA as premultiplied, so translucent frames go through
// two opaque passes: one for colour and one for alpha.
func scale(s draw.Scaler, src []byte, sw, sh, dw, dh int) []byte {
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	if opaque(src) {
		in := view(src, sw, sh)
		s.Scale(dst, dst.Bounds(), in, in.Bounds(), draw.Src, nil)
		return dst.Pix
	}

	colour, alpha := split(src)
	in := view(colour, sw, sh)
	s.Scale(dst, dst.Bounds(), in, in.Bounds(), draw.Src, nil)

	a := image.NewRGBA(dst.Rect)
	in = view(alpha, sw, sh)
	s.Scale(a, a.Bounds(), in, in.Bounds(), draw.Src, nil)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = a.Pix[i-3]
	}
	return dst.Pix
}

func opaque(pix []byte) bool {
	for i := 3; i < len(pix); i += 4 {
		if pix[i] != 0xff {
			return false
		}
	}
	return true
}

// split returns two opaque buffers: the colour channels of pix, and its
// alpha channel moved into red.
func split(pix []byte) (colour, alpha []byte) {
	colour = make([]byte, len(pix))
	alpha = make([]byte, len(pix))
	for i := 0; i < len(pix); i += 4 {
		colour[i], colour[i+1], colour[i+2], colour[i+3] = pix[i], pix[i+1], pix[i+2], 0xff
		alpha[i], alpha[i+3] = pix[i+3], 0xff
	}
	return colour, alpha
}

func view(pix []byte, w, h int) *image.RGBA {
	return &image.RGBA{Pix: pix, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
}

// Cache reuses the filter weights of the last size pair it saw. Capture
// sources usually produce the same size for long stretches.
type Cache struct {
	mu     sync.Mutex
	key    [4]int
	scaler draw.Scaler
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) Resize(src []byte, sw, sh, dw, dh int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := [4]int{sw, sh, dw, dh}
	if c.scaler == nil || c.key != key {
		c.scaler = Lanczos3.NewScaler(dw, dh, sw, sh)
		c.key = key
	}
	return scale(c.scaler, src, sw, sh, dw, dh)
}

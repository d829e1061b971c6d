package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// ScreenGrabber captures a whole monitor.
type ScreenGrabber struct {
	index int
}

// NewScreenGrabber creates a grabber for the display at index.
func NewScreenGrabber(index int) (*ScreenGrabber, error) {
	if n := screenshot.NumActiveDisplays(); index < 0 || index >= n {
		return nil, fmt.Errorf("display index %d out of range (have %d displays)", index, n)
	}
	return &ScreenGrabber{index: index}, nil
}

// Next re-reads the display bounds every tick so mode changes show up as
// new source dimensions.
func (g *ScreenGrabber) Next() (RawFrame, error) {
	if g.index >= screenshot.NumActiveDisplays() {
		return nil, fmt.Errorf("%w: display %d", ErrTargetGone, g.index)
	}
	return &screenFrame{bounds: screenshot.GetDisplayBounds(g.index)}, nil
}

func (g *ScreenGrabber) Close() error { return nil }

type screenFrame struct {
	bounds image.Rectangle
}

func (f *screenFrame) Width() int  { return f.bounds.Dx() }
func (f *screenFrame) Height() int { return f.bounds.Dy() }

func (f *screenFrame) Buffer() ([]byte, error) {
	img, err := screenshot.CaptureRect(f.bounds)
	if err != nil {
		return nil, fmt.Errorf("capture display: %w", err)
	}
	if img.Bounds().Dx() != f.bounds.Dx() || img.Bounds().Dy() != f.bounds.Dy() {
		return nil, fmt.Errorf("capture display: got %v, want %v", img.Bounds().Size(), f.bounds.Size())
	}
	return PackRGBA(img), nil
}

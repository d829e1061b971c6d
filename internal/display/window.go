// Package display shows captured frames in an Ebitengine window.
package display

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/junsooki/screencap/internal/capture"
)

// Window renders frames pulled from a FrameSource and turns key presses
// into capture commands.
type Window struct {
	title  string
	src    FrameSource
	sink   CommandSink
	logger *zap.Logger

	frame capture.Frame
	img   *ebiten.Image
	dirty bool
	rate  int
	keys  []ebiten.Key
}

// NewWindow creates a window. rate is the capture's current frame rate, the
// starting point for the +/- keys.
func NewWindow(title string, src FrameSource, sink CommandSink, rate int, logger *zap.Logger) *Window {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Window{
		title:  title,
		src:    src,
		sink:   sink,
		rate:   rate,
		logger: logger.Named("display"),
	}
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (w *Window) Run() error {
	ebiten.SetWindowSize(1280, 720)
	ebiten.SetWindowTitle(w.title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(w)
}

// --- ebiten.Game interface ---

func (w *Window) Update() error {
	if w.src.Closed() {
		w.logger.Info("capture closed, leaving")
		return ebiten.Termination
	}
	if f, ok := w.src.Next(); ok {
		w.frame, w.dirty = f, true
	}

	w.keys = inpututil.AppendJustPressedKeys(w.keys[:0])
	for _, k := range w.keys {
		cmd, ok := commandForKey(k, w.rate)
		if !ok || w.sink == nil {
			continue
		}
		if cmd.Kind == capture.CommandSetFrameRate {
			w.rate = cmd.FrameRate
		}
		w.logger.Debug("key command", zap.Stringer("command", cmd.Kind), zap.String("value", cmd.Value()))
		w.sink.Apply(cmd)
	}
	return nil
}

func (w *Window) Draw(screen *ebiten.Image) {
	f := w.frame
	if f.Empty() {
		return
	}

	if w.img == nil || w.img.Bounds().Dx() != f.Width || w.img.Bounds().Dy() != f.Height {
		if w.img != nil {
			w.img.Deallocate()
		}
		w.img = ebiten.NewImage(f.Width, f.Height)
		w.dirty = true
	}
	if w.dirty {
		w.img.WritePixels(f.Data)
		w.dirty = false
	}

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	scale, offsetX, offsetY := aspectFitTransform(float64(sw), float64(sh), float64(f.Width), float64(f.Height))

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(w.img, op)
}

func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}

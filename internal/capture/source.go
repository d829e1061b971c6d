package capture

import "errors"

// ErrTargetGone is returned by a Grabber when the capture target no longer
// exists (window destroyed, display unplugged).
var ErrTargetGone = errors.New("capture target gone")

// RawFrame is a frame as reported by the capture subsystem. Its pixels are
// only read when Buffer is called, so dropped frames cost nothing.
type RawFrame interface {
	Width() int
	Height() int
	// Buffer returns tightly packed RGBA8 pixels, len == Width*Height*4.
	Buffer() ([]byte, error)
}

// Control lets a handler end the capture session it is running in.
type Control interface {
	Stop()
}

// Handler receives per-frame callbacks from a Source. Calls are serialized:
// a Source never invokes a Handler concurrently with itself.
type Handler interface {
	OnFrameArrived(frame RawFrame, ctl Control) error
	// OnClosed is called when the session is ended by the target side.
	OnClosed() error
}

// Source starts capture sessions.
type Source interface {
	Start(h Handler) (Session, error)
}

// Session is a running capture. A handler error ends the session; Err
// reports it once Done is closed.
type Session interface {
	Stop()
	Done() <-chan struct{}
	Err() error
}

// Resampler scales a tightly packed RGBA buffer.
type Resampler interface {
	Resize(src []byte, sw, sh, dw, dh int) []byte
}

// bufferFrame is a RawFrame over an already acquired buffer.
type bufferFrame struct {
	data []byte
	w, h int
	err  error
}

// NewRawFrame wraps a packed RGBA buffer.
func NewRawFrame(data []byte, width, height int) RawFrame {
	return &bufferFrame{data: data, w: width, h: height}
}

// FailedFrame is a RawFrame whose buffer cannot be acquired.
func FailedFrame(width, height int, err error) RawFrame {
	return &bufferFrame{w: width, h: height, err: err}
}

func (f *bufferFrame) Width() int  { return f.w }
func (f *bufferFrame) Height() int { return f.h }

func (f *bufferFrame) Buffer() ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

// Package capturetest provides a capture.Source driven by test code.
package capturetest

import (
	"errors"
	"image/color"
	"sync"

	"github.com/junsooki/screencap/internal/capture"
)

// Source delivers frames pushed by the test to its handler. The handler runs
// on the source's own goroutine, one call at a time, like a real capture
// subsystem. Push methods block until the handler has returned.
type Source struct {
	items  chan item
	stopCh chan struct{}
	done   chan struct{}

	mu        sync.Mutex
	started   bool
	stopOnce  sync.Once
	err       error
	delivered int
}

type item struct {
	frame  capture.RawFrame
	closed bool
	done   chan struct{}
}

func New() *Source {
	return &Source{
		items:  make(chan item),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (s *Source) Start(h capture.Handler) (capture.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil, errors.New("capturetest: source already started")
	}
	s.started = true
	go s.loop(h)
	return s, nil
}

func (s *Source) loop(h capture.Handler) {
	defer close(s.done)
	for {
		select {
		case <-s.stopCh:
			return
		case it := <-s.items:
			var err error
			if it.closed {
				err = h.OnClosed()
			} else {
				err = h.OnFrameArrived(it.frame, s)
				s.mu.Lock()
				s.delivered++
				s.mu.Unlock()
			}
			close(it.done)
			if err != nil || it.closed {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
				return
			}
			if s.StopRequested() {
				return
			}
		}
	}
}

func (s *Source) push(it item) bool {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return false
	}
	it.done = make(chan struct{})
	select {
	case s.items <- it:
	case <-s.done:
		return false
	}
	<-it.done
	return true
}

// Emit hands frame to the handler. It returns false if the session has
// already ended.
func (s *Source) Emit(frame capture.RawFrame) bool {
	return s.push(item{frame: frame})
}

// EmitSolid emits a w x h frame filled with c.
func (s *Source) EmitSolid(w, h int, c color.RGBA) bool {
	return s.Emit(capture.NewRawFrame(Solid(w, h, c), w, h))
}

// EmitFailing emits a frame whose buffer cannot be acquired.
func (s *Source) EmitFailing(w, h int, err error) bool {
	return s.Emit(capture.FailedFrame(w, h, err))
}

// Close simulates the target disappearing.
func (s *Source) Close() bool {
	return s.push(item{closed: true})
}

// Delivered returns how many frames reached the handler.
func (s *Source) Delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivered
}

// StopRequested reports whether Stop was called on the session.
func (s *Source) StopRequested() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Source) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Source) Done() <-chan struct{} { return s.done }

func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Solid returns a packed RGBA buffer of w x h pixels of colour c.
func Solid(w, h int, c color.RGBA) []byte {
	buf := make([]byte, w*h*capture.BytesPerPixel)
	for i := 0; i < len(buf); i += capture.BytesPerPixel {
		buf[i+0], buf[i+1], buf[i+2], buf[i+3] = c.R, c.G, c.B, c.A
	}
	return buf
}

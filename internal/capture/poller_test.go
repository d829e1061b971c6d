package capture

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type scriptedGrabber struct {
	mu     sync.Mutex
	frames int
	err    error
	calls  int
	closed bool
}

func (g *scriptedGrabber) Next() (RawFrame, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.calls > g.frames {
		return nil, g.err
	}
	return NewRawFrame(make([]byte, 4), 1, 1), nil
}

func (g *scriptedGrabber) Close() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	return nil
}

func (g *scriptedGrabber) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

type recordingHandler struct {
	mu       sync.Mutex
	frames   int
	closed   int
	inflight int
	overlap  bool
	failAt   int
	stopAt   int
}

func (h *recordingHandler) OnFrameArrived(_ RawFrame, ctl Control) error {
	h.mu.Lock()
	h.inflight++
	if h.inflight > 1 {
		h.overlap = true
	}
	h.frames++
	n := h.frames
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.inflight--
		h.mu.Unlock()
	}()
	if h.stopAt > 0 && n == h.stopAt {
		ctl.Stop()
	}
	if h.failAt > 0 && n == h.failAt {
		return errors.New("handler failed")
	}
	return nil
}

func (h *recordingHandler) OnClosed() error {
	h.mu.Lock()
	h.closed++
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) counts() (frames, closed int, overlap bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames, h.closed, h.overlap
}

func waitDone(t *testing.T, s Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
	}
}

func TestPollerTargetGone(t *testing.T) {
	g := &scriptedGrabber{frames: 3, err: ErrTargetGone}
	h := &recordingHandler{}

	s, err := NewPoller(g, 1000, nil).Start(h)
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, s)

	frames, closed, overlap := h.counts()
	if frames != 3 {
		t.Errorf("frames = %d, want 3", frames)
	}
	if closed != 1 {
		t.Errorf("OnClosed calls = %d, want 1", closed)
	}
	if overlap {
		t.Error("handler invoked concurrently")
	}
	if s.Err() != nil {
		t.Errorf("Err = %v, want nil", s.Err())
	}
	if !g.isClosed() {
		t.Error("grabber not closed")
	}
}

func TestPollerHandlerError(t *testing.T) {
	g := &scriptedGrabber{frames: 100, err: ErrTargetGone}
	h := &recordingHandler{failAt: 2}

	s, err := NewPoller(g, 1000, nil).Start(h)
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, s)

	if s.Err() == nil {
		t.Error("Err = nil, want handler error")
	}
	if frames, closed, _ := h.counts(); frames != 2 || closed != 0 {
		t.Errorf("frames=%d closed=%d, want 2 and 0", frames, closed)
	}
}

func TestPollerStopFromHandler(t *testing.T) {
	g := &scriptedGrabber{frames: 100, err: ErrTargetGone}
	h := &recordingHandler{stopAt: 4}

	s, err := NewPoller(g, 1000, nil).Start(h)
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, s)

	if frames, _, _ := h.counts(); frames != 4 {
		t.Errorf("frames = %d, want 4", frames)
	}
}

func TestPollerGrabErrorReachesHandler(t *testing.T) {
	boom := errors.New("grab failed")
	g := &scriptedGrabber{frames: 0, err: boom}
	commands, events := NewQueue[Command](), NewQueue[Event]()
	w := NewWorker(commands, events, Settings{})

	s, err := NewPoller(g, 1000, nil).Start(w)
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, s)

	if !errors.Is(s.Err(), boom) {
		t.Errorf("Err = %v, want %v", s.Err(), boom)
	}
	if _, closed := countKinds(events.Drain()); closed != 1 {
		t.Errorf("closed events = %d, want 1", closed)
	}
}

func TestPollerStartTwice(t *testing.T) {
	p := NewPoller(&scriptedGrabber{err: ErrTargetGone}, 1000, nil)
	s, err := p.Start(&recordingHandler{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	if _, err := p.Start(&recordingHandler{}); err == nil {
		t.Error("second Start succeeded")
	}
}

type blinkingGrabber struct {
	mu    sync.Mutex
	calls int
}

func (g *blinkingGrabber) Next() (RawFrame, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	switch {
	case g.calls > 6:
		return nil, ErrTargetGone
	case g.calls%2 == 0:
		return nil, ErrNoFrame
	}
	return NewRawFrame(make([]byte, 4), 1, 1), nil
}

func (g *blinkingGrabber) Close() error { return nil }

func TestPollerSkipsMissingFrames(t *testing.T) {
	h := &recordingHandler{}
	s, err := NewPoller(&blinkingGrabber{}, 1000, nil).Start(h)
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, s)

	if frames, closed, _ := h.counts(); frames != 3 || closed != 1 {
		t.Errorf("frames=%d closed=%d, want 3 and 1", frames, closed)
	}
	if s.Err() != nil {
		t.Errorf("Err = %v, want nil", s.Err())
	}
}

package display

import (
	"sync"

	"github.com/junsooki/screencap/internal/capture"
)

// FrameSource feeds the window once per tick.
type FrameSource interface {
	// Next returns a frame not returned before, if one is available.
	Next() (capture.Frame, bool)
	// Closed reports that no more frames will come.
	Closed() bool
}

// CommandSink receives the commands bound to keys.
type CommandSink interface {
	Apply(cmd capture.Command)
}

// Refresher is the pull side of a local capture.
type Refresher interface {
	Refresh(suppress bool) capture.Frame
	IsRunning() bool
}

// LocalSource pulls a local capture handle on every tick.
type LocalSource struct {
	r       Refresher
	lastSeq uint64
}

func NewLocalSource(r Refresher) *LocalSource {
	return &LocalSource{r: r}
}

func (s *LocalSource) Next() (capture.Frame, bool) {
	f := s.r.Refresh(false)
	if f.Empty() || f.Seq == s.lastSeq {
		return capture.Frame{}, false
	}
	s.lastSeq = f.Seq
	return f, true
}

func (s *LocalSource) Closed() bool { return !s.r.IsRunning() }

// RemoteSource holds the latest frame pushed from the network. Frames that
// are never drawn are overwritten.
type RemoteSource struct {
	mu     sync.Mutex
	frame  capture.Frame
	fresh  bool
	closed bool
}

func NewRemoteSource() *RemoteSource {
	return &RemoteSource{}
}

// Push replaces the pending frame (called from network goroutine).
func (s *RemoteSource) Push(f capture.Frame) {
	s.mu.Lock()
	s.frame, s.fresh = f, true
	s.mu.Unlock()
}

// Close marks the remote capture as ended.
func (s *RemoteSource) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *RemoteSource) Next() (capture.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh {
		return capture.Frame{}, false
	}
	s.fresh = false
	return s.frame, true
}

func (s *RemoteSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

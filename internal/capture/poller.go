package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPollRate is the tick rate of a Poller when none is configured.
const DefaultPollRate = 60

// ErrNoFrame is returned by a Grabber when the target has nothing to show
// this tick. The Poller skips the tick.
var ErrNoFrame = errors.New("no frame available")

// Grabber produces frames on demand for a Poller.
type Grabber interface {
	// Next describes the current frame. It returns ErrTargetGone once the
	// target disappeared. Pixel acquisition happens in RawFrame.Buffer.
	Next() (RawFrame, error)
	Close() error
}

// Poller is a Source that ticks a Grabber on one dedicated goroutine and
// hands each frame to the handler, one call at a time.
type Poller struct {
	grabber  Grabber
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
}

// NewPoller creates a poller ticking rate times per second.
func NewPoller(g Grabber, rate int, logger *zap.Logger) *Poller {
	if rate <= 0 {
		rate = DefaultPollRate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		grabber:  g,
		interval: time.Second / time.Duration(rate),
		logger:   logger.Named("poller"),
	}
}

func (p *Poller) Start(h Handler) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil, fmt.Errorf("poller already started")
	}
	p.started = true

	s := &pollSession{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.loop(s, h)
	return s, nil
}

func (p *Poller) loop(s *pollSession, h Handler) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer close(s.done)
	defer func() {
		if err := p.grabber.Close(); err != nil {
			p.logger.Warn("grabber close", zap.Error(err))
		}
	}()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}

		// A handler may have stopped the session during the previous tick.
		select {
		case <-s.stopCh:
			return
		default:
		}

		frame, err := p.grabber.Next()
		if errors.Is(err, ErrTargetGone) {
			p.logger.Info("capture target gone", zap.Error(err))
			s.setErr(h.OnClosed())
			return
		}
		if errors.Is(err, ErrNoFrame) {
			continue
		}
		if err != nil {
			frame = FailedFrame(0, 0, err)
		}
		if err := h.OnFrameArrived(frame, s); err != nil {
			s.setErr(err)
			return
		}
	}
}

type pollSession struct {
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	mu  sync.Mutex
	err error
}

func (s *pollSession) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *pollSession) Done() <-chan struct{} { return s.done }

func (s *pollSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *pollSession) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

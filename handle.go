package screencap

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/junsooki/screencap/internal/capture"
)

// Handle is the caller's side of a running capture. Getters report the
// last requested values, not what the worker has applied yet. No method
// blocks except Close.
type Handle struct {
	id       string
	target   Target
	commands *capture.Queue[capture.Command]
	events   *capture.Queue[capture.Event]
	session  capture.Session
	logger   *zap.Logger

	mu       sync.Mutex
	want     capture.Settings
	frame    capture.Frame
	running  bool
	onClose  func()
	detached bool
}

func newHandle(id string, target Target, initial capture.Settings, commands *capture.Queue[capture.Command],
	events *capture.Queue[capture.Event], session capture.Session, logger *zap.Logger) *Handle {
	return &Handle{
		id:       id,
		target:   target,
		commands: commands,
		events:   events,
		session:  session,
		logger:   logger.Named("handle"),
		want:     initial,
		frame:    capture.EmptyFrame(),
		running:  true,
	}
}

// ID identifies the capture in logs and registries.
func (h *Handle) ID() string { return h.id }

// Target returns the resolved capture target.
func (h *Handle) Target() Target { return h.target }

func (h *Handle) SetFrameRate(rate int) { h.request(capture.SetFrameRate(rate)) }

func (h *Handle) SetResolution(width, height int) { h.request(capture.SetResolution(width, height)) }

func (h *Handle) SetWidth(width int) { h.request(capture.SetWidth(width)) }

func (h *Handle) SetHeight(height int) { h.request(capture.SetHeight(height)) }

// Stop asks the worker to end the capture. The Closed notification arrives
// through a later Refresh.
func (h *Handle) Stop() { h.request(capture.StopCommand()) }

// Apply dispatches a decoded command.
func (h *Handle) Apply(cmd capture.Command) { h.request(cmd) }

func (h *Handle) request(cmd capture.Command) {
	h.mu.Lock()
	h.want = h.want.Apply(cmd)
	cmd = normalize(cmd)
	h.mu.Unlock()

	if err := h.commands.Send(cmd); err != nil {
		h.logger.Debug("command dropped", zap.Stringer("command", cmd.Kind), zap.Error(err))
	}
}

func normalize(cmd capture.Command) capture.Command {
	if cmd.Width < 0 {
		cmd.Width = 0
	}
	if cmd.Height < 0 {
		cmd.Height = 0
	}
	if cmd.FrameRate < 0 {
		cmd.FrameRate = 0
	}
	return cmd
}

func (h *Handle) FrameRate() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.want.FrameRate
}

func (h *Handle) Resolution() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.want.Width, h.want.Height
}

func (h *Handle) Width() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.want.Width
}

func (h *Handle) Height() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.want.Height
}

// OnClose registers fn to run when Refresh observes the end of the
// capture. A later call replaces an earlier one; nil clears it.
func (h *Handle) OnClose(fn func()) {
	h.mu.Lock()
	h.onClose = fn
	h.mu.Unlock()
}

// IsRunning reports the running flag as of the last Refresh.
func (h *Handle) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Refresh takes every event the worker delivered since the last call. The
// close callback runs on the calling goroutine before Refresh returns. With
// suppress set the result is the empty frame, otherwise a copy of the
// latest frame.
func (h *Handle) Refresh(suppress bool) Frame {
	h.mu.Lock()
	var callbacks []func()
	for _, ev := range h.events.Drain() {
		switch ev.Kind {
		case capture.EventFrameDelivered:
			if h.running {
				h.frame = ev.Frame
			}
		case capture.EventClosed:
			h.running = false
			h.frame = capture.EmptyFrame()
			if h.onClose != nil {
				callbacks = append(callbacks, h.onClose)
			}
			h.logger.Debug("capture closed")
		}
	}
	out := capture.EmptyFrame()
	if !suppress {
		out = h.frame.Clone()
	}
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return out
}

// Frame returns a copy of the latest frame without draining.
func (h *Handle) Frame() Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame.Clone()
}

// Err returns the error that ended the capture session, if it has ended.
func (h *Handle) Err() error {
	select {
	case <-h.session.Done():
		return h.session.Err()
	default:
		return nil
	}
}

// Close drops the receiving side, ends the capture session and waits for
// it to finish. The close callback is not invoked. Close is idempotent.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.detached {
		h.mu.Unlock()
		return nil
	}
	h.detached = true
	h.running = false
	h.frame = capture.EmptyFrame()
	h.mu.Unlock()

	h.session.Stop()
	<-h.session.Done()
	h.events.Close()
	h.logger.Info("capture closed")
	if err := h.session.Err(); err != nil && !errors.Is(err, capture.ErrQueueClosed) {
		return err
	}
	return nil
}

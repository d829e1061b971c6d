package capture

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// WorkerStats counts what the worker did with the frames it was handed.
type WorkerStats struct {
	FramesSeen    uint64
	FramesEmitted uint64
	FramesGated   uint64
	FramesResized uint64
}

// Worker is the capture-side state machine. It is driven exclusively by a
// Source through OnFrameArrived and OnClosed, which the Source serializes,
// so its state needs no locking.
type Worker struct {
	commands  *Queue[Command]
	events    *Queue[Event]
	settings  Settings
	lastEmit  time.Time
	seq       uint64
	stopped   bool
	closed    bool
	now       func() time.Time
	resampler Resampler
	logger    *zap.Logger
	stats     WorkerStats
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

func WithLogger(logger *zap.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithClock replaces time.Now for rate gating and frame timestamps.
func WithClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

func WithResampler(r Resampler) WorkerOption {
	return func(w *Worker) { w.resampler = r }
}

// NewWorker creates a worker reading commands and writing events.
func NewWorker(commands *Queue[Command], events *Queue[Event], initial Settings, opts ...WorkerOption) *Worker {
	w := &Worker{
		commands: commands,
		events:   events,
		settings: initial.Normalize(),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("worker")
	return w
}

// Settings returns the currently applied target state.
func (w *Worker) Settings() Settings { return w.settings }

// Stopped reports whether the worker has stopped processing frames.
func (w *Worker) Stopped() bool { return w.stopped }

func (w *Worker) Stats() WorkerStats { return w.stats }

// OnFrameArrived processes one captured frame.
func (w *Worker) OnFrameArrived(frame RawFrame, ctl Control) error {
	if w.stopped {
		return nil
	}
	w.stats.FramesSeen++

	if w.applyCommands(ctl) {
		return nil
	}

	now := w.now()
	if rate := w.settings.FrameRate; rate > 0 {
		if !w.lastEmit.IsZero() && now.Sub(w.lastEmit).Seconds() < 1/float64(rate) {
			w.stats.FramesGated++
			return nil
		}
		w.lastEmit = now
	}

	sw, sh := frame.Width(), frame.Height()
	buf, err := frame.Buffer()
	if err != nil {
		return w.fail(ctl, fmt.Errorf("acquire frame buffer: %w", err))
	}
	if want := sw * sh * BytesPerPixel; len(buf) != want {
		return w.fail(ctl, fmt.Errorf("acquire frame buffer: %dx%d frame has %d bytes, want %d", sw, sh, len(buf), want))
	}

	out := Frame{Data: buf, Width: sw, Height: sh, Timestamp: now}
	if sw > 0 && sh > 0 && w.settings.Resize(sw, sh) && w.resampler != nil {
		tw, th := w.settings.Width, w.settings.Height
		out.Data = w.resampler.Resize(buf, sw, sh, tw, th)
		out.Width, out.Height = tw, th
		w.stats.FramesResized++
	}
	w.seq++
	out.Seq = w.seq

	if err := w.events.Send(FrameDelivered(out)); err != nil {
		return w.fail(ctl, fmt.Errorf("deliver frame: %w", err))
	}
	w.stats.FramesEmitted++
	return nil
}

// OnClosed handles termination of the session by the target side.
func (w *Worker) OnClosed() error {
	w.logger.Debug("capture session closed by target")
	w.stopped = true
	w.emitClosed()
	return nil
}

// applyCommands drains pending commands and reports whether Stop was seen.
// Commands queued behind a Stop are discarded.
func (w *Worker) applyCommands(ctl Control) bool {
	for _, cmd := range w.commands.Drain() {
		if cmd.Kind == CommandStop {
			w.logger.Debug("stop requested")
			w.stopped = true
			w.emitClosed()
			ctl.Stop()
			return true
		}
		w.settings = w.settings.Apply(cmd)
		w.logger.Debug("command applied",
			zap.Stringer("command", cmd.Kind),
			zap.Int("width", w.settings.Width),
			zap.Int("height", w.settings.Height),
			zap.Int("frame_rate", w.settings.FrameRate),
		)
	}
	return false
}

func (w *Worker) emitClosed() {
	if w.closed {
		return
	}
	w.closed = true
	if err := w.events.Send(ClosedEvent()); err != nil {
		w.logger.Debug("closed event not delivered", zap.Error(err))
	}
}

func (w *Worker) fail(ctl Control, err error) error {
	if errors.Is(err, ErrQueueClosed) {
		w.logger.Debug("consumer gone, stopping", zap.Error(err))
	} else {
		w.logger.Error("capture worker failed", zap.Error(err))
	}
	w.stopped = true
	w.emitClosed()
	ctl.Stop()
	return err
}

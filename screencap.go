// Package screencap captures a monitor or window and hands its frames to a
// caller that pulls them at its own pace.
//
// A capture is created with New and driven through the returned Handle:
// setters enqueue control commands for the capture worker, and Refresh
// drains whatever the worker delivered since the previous call.
package screencap

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/junsooki/screencap/internal/capture"
	"github.com/junsooki/screencap/internal/resample"
	"github.com/junsooki/screencap/internal/targets"
)

// Version of the capture module.
const Version = "0.3.1"

var (
	// ErrInvalidTarget is returned by New when the target id names neither a
	// monitor nor a window.
	ErrInvalidTarget = errors.New("invalid capture target")
	// ErrInvalidOptions is returned by New for negative sizes or rates.
	ErrInvalidOptions = errors.New("invalid capture options")
)

type (
	Target = targets.Target
	Frame  = capture.Frame
)

// Options describe a capture. Zero Width or Height means native resolution;
// zero FrameRate delivers every frame.
type Options struct {
	Target    int `json:"target" yaml:"target"`
	Width     int `json:"width" yaml:"width"`
	Height    int `json:"height" yaml:"height"`
	FrameRate int `json:"frameRate" yaml:"frameRate"`
}

func (o Options) validate() error {
	if o.Width < 0 || o.Height < 0 || o.FrameRate < 0 {
		return fmt.Errorf("%w: width=%d height=%d frameRate=%d", ErrInvalidOptions, o.Width, o.Height, o.FrameRate)
	}
	return nil
}

// Backend starts the OS capture of a resolved target.
type Backend func(t Target) (capture.Source, error)

type settings struct {
	logger   *zap.Logger
	resolver targets.Resolver
	backend  Backend
	now      func() time.Time
	pollRate int
}

// Option configures New.
type Option func(*settings)

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithResolver replaces the system target list.
func WithResolver(r targets.Resolver) Option {
	return func(s *settings) { s.resolver = r }
}

// WithBackend replaces the OS capture backend.
func WithBackend(b Backend) Option {
	return func(s *settings) { s.backend = b }
}

// WithClock replaces time.Now in the worker.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithPollRate sets how often the default backend grabs a frame.
func WithPollRate(rate int) Option {
	return func(s *settings) { s.pollRate = rate }
}

// GetTargets lists the monitors and windows of the local machine.
func GetTargets() ([]Target, error) {
	return targets.NewSystem(nil).Targets()
}

// DefaultBackend polls monitors through the screenshot library and windows
// through the platform window system.
func DefaultBackend(pollRate int, logger *zap.Logger) Backend {
	return func(t Target) (capture.Source, error) {
		var (
			g   capture.Grabber
			err error
		)
		switch t.Kind {
		case targets.KindMonitor:
			g, err = capture.NewScreenGrabber(t.ID)
		case targets.KindWindow:
			g, err = capture.OpenWindow(uint32(t.ID))
		default:
			err = fmt.Errorf("unsupported target kind %q", t.Kind)
		}
		if err != nil {
			return nil, err
		}
		return capture.NewPoller(g, pollRate, logger), nil
	}
}

// PatternBackend serves a synthetic test pattern for every target.
func PatternBackend(width, height, pollRate int, logger *zap.Logger) Backend {
	return func(Target) (capture.Source, error) {
		return capture.NewPoller(capture.NewPatternGrabber(width, height), pollRate, logger), nil
	}
}

// New resolves opts.Target and starts capturing it. Configuration errors
// are reported before anything is started.
func New(opts Options, o ...Option) (*Handle, error) {
	s := settings{
		logger:   zap.NewNop(),
		now:      time.Now,
		pollRate: capture.DefaultPollRate,
	}
	for _, fn := range o {
		fn(&s)
	}
	if s.resolver == nil {
		s.resolver = targets.NewSystem(s.logger)
	}
	if s.backend == nil {
		s.backend = DefaultBackend(s.pollRate, s.logger)
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}
	target, err := s.resolver.Resolve(opts.Target)
	if errors.Is(err, targets.ErrUnknownTarget) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTarget, opts.Target)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve target %d: %w", opts.Target, err)
	}

	src, err := s.backend(target)
	if err != nil {
		return nil, fmt.Errorf("capture init: %w", err)
	}

	id := uuid.NewString()
	logger := s.logger.With(zap.String("capture", id))
	commands := capture.NewQueue[capture.Command]()
	events := capture.NewQueue[capture.Event]()
	initial := capture.Settings{Width: opts.Width, Height: opts.Height, FrameRate: opts.FrameRate}
	worker := capture.NewWorker(commands, events, initial,
		capture.WithLogger(logger),
		capture.WithClock(s.now),
		capture.WithResampler(resample.NewCache()),
	)

	session, err := src.Start(worker)
	if err != nil {
		return nil, fmt.Errorf("capture start: %w", err)
	}
	logger.Info("capture started",
		zap.Stringer("target", target),
		zap.Int("width", opts.Width),
		zap.Int("height", opts.Height),
		zap.Int("frame_rate", opts.FrameRate),
	)

	return newHandle(id, target, initial, commands, events, session, logger), nil
}

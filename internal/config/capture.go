package config

import (
	"go.uber.org/zap"

	"github.com/junsooki/screencap"
	"github.com/junsooki/screencap/internal/targets"
)

// Pattern mode serves one synthetic monitor of this size.
const (
	PatternWidth  = 1280
	PatternHeight = 720
)

// PatternTargets is the target list used in pattern mode.
var PatternTargets = targets.Static{
	{Title: "Test pattern", Kind: targets.KindMonitor, ID: 0, Width: PatternWidth, Height: PatternHeight},
}

// Options returns the capture options for screencap.New.
func (c Capture) Options() screencap.Options {
	return screencap.Options{
		Target:    c.Target,
		Width:     c.Width,
		Height:    c.Height,
		FrameRate: c.FrameRate,
	}
}

// HandleOptions returns the functional options matching c.
func (c Capture) HandleOptions(logger *zap.Logger) []screencap.Option {
	return SourceOptions(c.Pattern, c.PollRate, logger)
}

// SourceOptions selects the system or pattern capture source.
func SourceOptions(pattern bool, pollRate int, logger *zap.Logger) []screencap.Option {
	opts := []screencap.Option{
		screencap.WithLogger(logger),
		screencap.WithPollRate(pollRate),
	}
	if pattern {
		opts = append(opts,
			screencap.WithResolver(PatternTargets),
			screencap.WithBackend(screencap.PatternBackend(PatternWidth, PatternHeight, pollRate, logger)),
		)
	}
	return opts
}

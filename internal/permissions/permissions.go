// Package permissions checks the OS permissions screen capture depends on.
package permissions

import (
	"errors"

	"go.uber.org/zap"
)

// ErrScreenRecordingDenied means the process may not capture the screen.
var ErrScreenRecordingDenied = errors.New("screen recording permission not granted")

// EnsureScreenRecording checks the permission and asks for it when missing.
// A grant only takes effect after the process restarts, so a missing
// permission is always an error.
func EnsureScreenRecording(logger *zap.Logger) error {
	if HasScreenRecording() {
		return nil
	}
	logger.Warn("screen recording permission not granted, requesting")
	RequestScreenRecording()
	return ErrScreenRecordingDenied
}

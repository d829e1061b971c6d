//go:build !darwin

package permissions

// HasScreenRecording reports true; only macOS gates screen capture.
func HasScreenRecording() bool { return true }

// RequestScreenRecording reports true; only macOS gates screen capture.
func RequestScreenRecording() bool { return true }

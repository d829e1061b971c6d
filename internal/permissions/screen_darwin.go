//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework CoreGraphics
#include <CoreGraphics/CoreGraphics.h>

static int screenCaptureAccess(int prompt) {
    if (CGPreflightScreenCaptureAccess()) {
        return 1;
    }
    return prompt ? CGRequestScreenCaptureAccess() : 0;
}
*/
import "C"

// HasScreenRecording reports whether the window server lets this process
// read other applications' pixels.
func HasScreenRecording() bool {
	return C.screenCaptureAccess(0) != 0
}

// RequestScreenRecording opens the system prompt when access is missing.
// A grant made from the prompt applies to the next launch.
func RequestScreenRecording() bool {
	return C.screenCaptureAccess(1) != 0
}

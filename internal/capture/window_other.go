//go:build !darwin

package capture

// OpenWindow returns a grabber for the X11 window with the given XID.
func OpenWindow(id uint32) (Grabber, error) {
	return NewWindowGrabber(id)
}

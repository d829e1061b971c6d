//go:build !darwin

package targets

// Windows lists the top-level windows of the X server named by $DISPLAY.
func Windows() ([]Target, error) {
	return x11Windows()
}

package targets

import "image"

// display is what the platform reports about one output beyond its bounds.
type display struct {
	Bounds      image.Rectangle
	RefreshRate int
	Device      string
}

// annotate copies refresh rate and device name onto the monitors whose
// bounds match a reported display. Monitors without a match are left alone.
func annotate(monitors []Target, displays []display) {
	for i := range monitors {
		if monitors[i].Kind != KindMonitor {
			continue
		}
		for _, d := range displays {
			if d.Bounds == monitors[i].Bounds {
				monitors[i].RefreshRate = d.RefreshRate
				monitors[i].DeviceName = d.Device
				break
			}
		}
	}
}

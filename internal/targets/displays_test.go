package targets

import (
	"image"
	"testing"
)

func TestAnnotateMatchesBounds(t *testing.T) {
	list := []Target{
		{Title: "Display 1", Kind: KindMonitor, ID: 0, Bounds: image.Rect(0, 0, 1920, 1080)},
		{Title: "Display 2", Kind: KindMonitor, ID: 1, Bounds: image.Rect(1920, 0, 4480, 1440)},
		{Title: "Display 3", Kind: KindMonitor, ID: 2, Bounds: image.Rect(0, 1080, 800, 1680)},
		{Title: "Term", Kind: KindWindow, ID: 77, Bounds: image.Rect(0, 0, 1920, 1080)},
	}
	annotate(list, []display{
		{Bounds: image.Rect(1920, 0, 4480, 1440), RefreshRate: 144, Device: "DP-1"},
		{Bounds: image.Rect(0, 0, 1920, 1080), RefreshRate: 60, Device: "eDP-1"},
	})

	want := []struct {
		rate   int
		device string
	}{{60, "eDP-1"}, {144, "DP-1"}, {0, ""}, {0, ""}}
	for i, w := range want {
		if list[i].RefreshRate != w.rate || list[i].DeviceName != w.device {
			t.Errorf("%s: got %d %q, want %d %q", list[i].Title, list[i].RefreshRate, list[i].DeviceName, w.rate, w.device)
		}
	}
}

package display

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/junsooki/screencap/internal/capture"
)

// rateSteps is the ladder walked by the +/- keys. 0 (unlimited) is the top.
var rateSteps = []int{1, 5, 10, 15, 24, 30, 60, 0}

// Presets bound to the digit keys; 0 restores native resolution.
var presets = map[ebiten.Key][2]int{
	ebiten.Key1: {640, 360},
	ebiten.Key2: {1280, 720},
	ebiten.Key3: {1920, 1080},
	ebiten.Key4: {320, 180},
	ebiten.Key0: {0, 0},
}

// stepRate moves rate one step up (dir > 0) or down the ladder. Rates off
// the ladder snap to the nearest step in that direction.
func stepRate(rate, dir int) int {
	pos := len(rateSteps) - 1
	if rate > 0 {
		pos = 0
		for pos < len(rateSteps)-1 && rateSteps[pos] != 0 && rateSteps[pos] < rate {
			pos++
		}
		if dir > 0 && rateSteps[pos] != rate {
			return rateSteps[pos]
		}
	}
	pos += dir
	if pos < 0 {
		pos = 0
	}
	if pos >= len(rateSteps) {
		pos = len(rateSteps) - 1
	}
	return rateSteps[pos]
}

// commandForKey maps a pressed key to a command given the current rate.
func commandForKey(k ebiten.Key, rate int) (capture.Command, bool) {
	switch k {
	case ebiten.KeyEqual, ebiten.KeyNumpadAdd:
		return capture.SetFrameRate(stepRate(rate, 1)), true
	case ebiten.KeyMinus, ebiten.KeyNumpadSubtract:
		return capture.SetFrameRate(stepRate(rate, -1)), true
	case ebiten.KeyEscape:
		return capture.StopCommand(), true
	}
	if p, ok := presets[k]; ok {
		return capture.SetResolution(p[0], p[1]), true
	}
	return capture.Command{}, false
}

//go:build darwin

package targets

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>

typedef struct {
    uint32_t id;
    int      x, y, width, height;
    double   refresh;
} DisplayInfo;

static int listDisplays(DisplayInfo* out, int max) {
    CGDirectDisplayID ids[16];
    uint32_t count = 0;
    if (CGGetActiveDisplayList(16, ids, &count) != kCGErrorSuccess) {
        return -1;
    }
    int n = 0;
    for (uint32_t i = 0; i < count && n < max; i++) {
        CGRect b = CGDisplayBounds(ids[i]);
        out[n].id = ids[i];
        out[n].x = (int)b.origin.x;
        out[n].y = (int)b.origin.y;
        out[n].width = (int)b.size.width;
        out[n].height = (int)b.size.height;
        out[n].refresh = 0;
        CGDisplayModeRef mode = CGDisplayCopyDisplayMode(ids[i]);
        if (mode) {
            out[n].refresh = CGDisplayModeGetRefreshRate(mode);
            CGDisplayModeRelease(mode);
        }
        n++;
    }
    return n;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// displays reads the active display list from CoreGraphics. Built-in
// panels report a refresh rate of zero.
func displays() ([]display, error) {
	var infos [16]C.DisplayInfo
	n := int(C.listDisplays(&infos[0], C.int(len(infos))))
	if n < 0 {
		return nil, errors.New("CGGetActiveDisplayList failed")
	}
	out := make([]display, 0, n)
	for _, d := range infos[:n] {
		x, y := int(d.x), int(d.y)
		out = append(out, display{
			Bounds:      image.Rect(x, y, x+int(d.width), y+int(d.height)),
			RefreshRate: int(math.Round(float64(d.refresh))),
			Device:      fmt.Sprintf("display-%d", uint32(d.id)),
		})
	}
	return out, nil
}

//go:build darwin

package targets

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>

typedef struct {
    uint32_t id;
    int      width;
    int      height;
    char     title[256];
} WindowInfo;

// listWindows fills out with the on-screen windows of the normal layer.
// Titles fall back to the owning application's name, since window names
// are only visible with screen recording permission.
static int listWindows(WindowInfo* out, int max) {
    CFArrayRef list = CGWindowListCopyWindowInfo(
        kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements,
        kCGNullWindowID);
    if (!list) {
        return 0;
    }
    int n = 0;
    CFIndex count = CFArrayGetCount(list);
    for (CFIndex i = 0; i < count && n < max; i++) {
        CFDictionaryRef d = (CFDictionaryRef)CFArrayGetValueAtIndex(list, i);

        int layer = 0;
        CFNumberRef layerRef = (CFNumberRef)CFDictionaryGetValue(d, kCGWindowLayer);
        if (layerRef) {
            CFNumberGetValue(layerRef, kCFNumberIntType, &layer);
        }
        if (layer != 0) {
            continue;
        }

        CFNumberRef numRef = (CFNumberRef)CFDictionaryGetValue(d, kCGWindowNumber);
        if (!numRef) {
            continue;
        }
        uint32_t num = 0;
        CFNumberGetValue(numRef, kCFNumberSInt32Type, &num);

        CGRect r = CGRectZero;
        CFDictionaryRef b = (CFDictionaryRef)CFDictionaryGetValue(d, kCGWindowBounds);
        if (b) {
            CGRectMakeWithDictionaryRepresentation(b, &r);
        }

        CFStringRef name = (CFStringRef)CFDictionaryGetValue(d, kCGWindowName);
        if (!name || CFStringGetLength(name) == 0) {
            name = (CFStringRef)CFDictionaryGetValue(d, kCGWindowOwnerName);
        }
        out[n].title[0] = 0;
        if (name) {
            CFStringGetCString(name, out[n].title, sizeof(out[n].title), kCFStringEncodingUTF8);
        }
        out[n].id = num;
        out[n].width = (int)r.size.width;
        out[n].height = (int)r.size.height;
        n++;
    }
    CFRelease(list);
    return n;
}
*/
import "C"

const maxWindows = 512

// Windows lists the on-screen application windows known to the window
// server. Windows without a title are skipped.
func Windows() ([]Target, error) {
	buf := make([]C.WindowInfo, maxWindows)
	n := int(C.listWindows(&buf[0], C.int(len(buf))))

	var out []Target
	for _, w := range buf[:n] {
		title := C.GoString(&w.title[0])
		if title == "" {
			continue
		}
		out = append(out, Target{
			Title:  title,
			Kind:   KindWindow,
			ID:     int(w.id),
			Width:  int(w.width),
			Height: int(w.height),
		})
	}
	return out, nil
}

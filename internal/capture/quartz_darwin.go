//go:build darwin

package capture

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>
#include <dlfcn.h>

// CGWindowListCreateImage is unavailable in the macOS 15 SDK headers but still
// present in the CoreGraphics dylib. Load it dynamically.
typedef CGImageRef (*CGWindowListCreateImageFunc)(
    CGRect screenBounds,
    uint32_t listOption,
    uint32_t windowID,
    uint32_t imageOption
);

static CGWindowListCreateImageFunc getCGWindowListCreateImage(void) {
    static CGWindowListCreateImageFunc fn = NULL;
    if (!fn) {
        fn = (CGWindowListCreateImageFunc)dlsym(RTLD_DEFAULT, "CGWindowListCreateImage");
    }
    return fn;
}

static int windowExists(uint32_t windowID) {
    CFArrayRef list = CGWindowListCopyWindowInfo(kCGWindowListOptionIncludingWindow, windowID);
    if (!list) {
        return 0;
    }
    int n = (int)CFArrayGetCount(list);
    CFRelease(list);
    return n > 0;
}

// grabWindow snapshots the window. The caller owns the returned image.
static void* grabWindow(uint32_t windowID) {
    CGWindowListCreateImageFunc fn = getCGWindowListCreateImage();
    if (!fn) {
        return NULL;
    }
    // kCGWindowListOptionIncludingWindow = 8, kCGWindowImageBoundsIgnoreFraming = 1
    return (void*)fn(CGRectNull, 8, windowID, 1);
}

static int imageWidth(void* image)  { return (int)CGImageGetWidth((CGImageRef)image); }
static int imageHeight(void* image) { return (int)CGImageGetHeight((CGImageRef)image); }

// drawImage renders image into out as premultiplied RGBA8, the only
// 8-bit RGBA layout a bitmap context accepts.
static int drawImage(void* image, void* out, int width, int height) {
    CGColorSpaceRef cs = CGColorSpaceCreateDeviceRGB();
    CGContextRef ctx = CGBitmapContextCreate(
        out, width, height, 8, (size_t)width * 4, cs, kCGImageAlphaPremultipliedLast);
    CGColorSpaceRelease(cs);
    if (!ctx) {
        return 0;
    }
    CGContextDrawImage(ctx, CGRectMake(0, 0, width, height), (CGImageRef)image);
    CGContextRelease(ctx);
    return 1;
}

static void releaseImage(void* image) {
    CGImageRelease((CGImageRef)image);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"
)

// QuartzGrabber captures one macOS window through CoreGraphics.
type QuartzGrabber struct {
	id C.uint32_t
}

// OpenWindow returns a grabber for the window with the given window number.
func OpenWindow(id uint32) (Grabber, error) {
	if C.windowExists(C.uint32_t(id)) == 0 {
		return nil, fmt.Errorf("window %d not found", id)
	}
	return &QuartzGrabber{id: C.uint32_t(id)}, nil
}

// Next snapshots the window, which is the only way CoreGraphics reports
// its pixel size. The pixels are copied out in Buffer. A window that is
// off screen for a moment yields ErrNoFrame.
func (g *QuartzGrabber) Next() (RawFrame, error) {
	if C.windowExists(g.id) == 0 {
		return nil, fmt.Errorf("%w: window %d", ErrTargetGone, uint32(g.id))
	}
	img := C.grabWindow(g.id)
	if img == nil {
		return nil, ErrNoFrame
	}
	f := &quartzFrame{img: img, w: int(C.imageWidth(img)), h: int(C.imageHeight(img))}
	runtime.AddCleanup(f, func(img unsafe.Pointer) { C.releaseImage(img) }, img)
	return f, nil
}

func (g *QuartzGrabber) Close() error { return nil }

type quartzFrame struct {
	img  unsafe.Pointer
	w, h int
}

func (f *quartzFrame) Width() int  { return f.w }
func (f *quartzFrame) Height() int { return f.h }

func (f *quartzFrame) Buffer() ([]byte, error) {
	if f.w <= 0 || f.h <= 0 {
		return nil, errors.New("window image is empty")
	}
	pix := make([]byte, f.w*f.h*BytesPerPixel)
	if C.drawImage(f.img, unsafe.Pointer(&pix[0]), C.int(f.w), C.int(f.h)) == 0 {
		return nil, errors.New("create bitmap context")
	}
	runtime.KeepAlive(f)
	Unpremultiply(pix)
	return pix, nil
}

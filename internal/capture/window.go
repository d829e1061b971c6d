package capture

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// WindowGrabber captures a single X11 window by its XID.
type WindowGrabber struct {
	conn *xgb.Conn
	win  xproto.Window
}

// NewWindowGrabber connects to the X server named by $DISPLAY and checks
// that the window exists.
func NewWindowGrabber(xid uint32) (*WindowGrabber, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect X server: %w", err)
	}
	g := &WindowGrabber{conn: conn, win: xproto.Window(xid)}
	if _, err := g.geometry(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("window %#x: %w", xid, err)
	}
	return g, nil
}

func (g *WindowGrabber) geometry() (*xproto.GetGeometryReply, error) {
	return xproto.GetGeometry(g.conn, xproto.Drawable(g.win)).Reply()
}

// Next reports ErrTargetGone once the window can no longer be queried.
func (g *WindowGrabber) Next() (RawFrame, error) {
	geom, err := g.geometry()
	if err != nil {
		return nil, fmt.Errorf("%w: window %#x: %v", ErrTargetGone, uint32(g.win), err)
	}
	return &windowFrame{g: g, w: int(geom.Width), h: int(geom.Height)}, nil
}

func (g *WindowGrabber) Close() error {
	g.conn.Close()
	return nil
}

type windowFrame struct {
	g    *WindowGrabber
	w, h int
}

func (f *windowFrame) Width() int  { return f.w }
func (f *windowFrame) Height() int { return f.h }

// Buffer reads the window as a 32-bit ZPixmap (BGRX on little-endian
// servers) and swizzles it into opaque RGBA.
func (f *windowFrame) Buffer() ([]byte, error) {
	reply, err := xproto.GetImage(f.g.conn, xproto.ImageFormatZPixmap, xproto.Drawable(f.g.win),
		0, 0, uint16(f.w), uint16(f.h), 0xffffffff).Reply()
	if err != nil {
		return nil, fmt.Errorf("get window image: %w", err)
	}
	want := f.w * f.h * BytesPerPixel
	if len(reply.Data) != want {
		return nil, fmt.Errorf("get window image: depth %d unsupported (%d bytes for %dx%d)", reply.Depth, len(reply.Data), f.w, f.h)
	}
	out := make([]byte, want)
	for i := 0; i < want; i += BytesPerPixel {
		out[i+0] = reply.Data[i+2]
		out[i+1] = reply.Data[i+1]
		out[i+2] = reply.Data[i+0]
		out[i+3] = 0xff
	}
	return out, nil
}

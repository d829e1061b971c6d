package targets

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// System lists the displays of the local machine and, when the window system
// can be queried, its top-level windows.
type System struct {
	logger *zap.Logger
}

func NewSystem(logger *zap.Logger) *System {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{logger: logger.Named("targets")}
}

func (s *System) Targets() ([]Target, error) {
	list := Monitors()
	if ds, err := displays(); err != nil {
		s.logger.Debug("display details unavailable", zap.Error(err))
	} else {
		annotate(list, ds)
	}
	windows, err := Windows()
	if err != nil {
		s.logger.Debug("window enumeration unavailable", zap.Error(err))
		return list, nil
	}
	return append(list, windows...), nil
}

func (s *System) Resolve(id int) (Target, error) {
	list, err := s.Targets()
	if err != nil {
		return Target{}, err
	}
	return find(list, id)
}

// Monitors returns one target per active display.
func Monitors() []Target {
	n := screenshot.NumActiveDisplays()
	out := make([]Target, 0, n)
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		out = append(out, Target{
			Title:  fmt.Sprintf("Display %d", i+1),
			Kind:   KindMonitor,
			ID:     i,
			Width:  b.Dx(),
			Height: b.Dy(),
			Bounds: b,
		})
	}
	return out
}

// x11Windows lists the client windows the window manager advertises through
// _NET_CLIENT_LIST. Windows without a title are skipped.
func x11Windows() ([]Target, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect X server: %w", err)
	}
	defer conn.Close()

	root := xproto.Setup(conn).DefaultScreen(conn).Root
	clientList, err := atom(conn, "_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	prop, err := xproto.GetProperty(conn, false, root, clientList, xproto.AtomWindow, 0, 1<<16).Reply()
	if err != nil {
		return nil, fmt.Errorf("read _NET_CLIENT_LIST: %w", err)
	}

	netName, _ := atom(conn, "_NET_WM_NAME")
	var out []Target
	for i := 0; i+4 <= len(prop.Value); i += 4 {
		win := xproto.Window(xgb.Get32(prop.Value[i:]))
		title := windowTitle(conn, win, netName)
		if title == "" {
			continue
		}
		geom, err := xproto.GetGeometry(conn, xproto.Drawable(win)).Reply()
		if err != nil {
			continue
		}
		out = append(out, Target{
			Title:  title,
			Kind:   KindWindow,
			ID:     int(win),
			Width:  int(geom.Width),
			Height: int(geom.Height),
		})
	}
	return out, nil
}

func atom(conn *xgb.Conn, name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("intern atom %s: %w", name, err)
	}
	if reply.Atom == 0 {
		return 0, fmt.Errorf("atom %s not defined", name)
	}
	return reply.Atom, nil
}

func windowTitle(conn *xgb.Conn, win xproto.Window, netName xproto.Atom) string {
	for _, a := range []xproto.Atom{netName, xproto.AtomWmName} {
		if a == 0 {
			continue
		}
		reply, err := xproto.GetProperty(conn, false, win, a, xproto.GetPropertyTypeAny, 0, 1024).Reply()
		if err == nil && len(reply.Value) > 0 {
			return string(reply.Value)
		}
	}
	return ""
}

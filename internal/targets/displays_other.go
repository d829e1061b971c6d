//go:build !darwin

package targets

import (
	"fmt"
	"image"
	"math"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
)

// displays asks RandR for every output driven by a CRTC.
func displays() ([]display, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect X server: %w", err)
	}
	defer conn.Close()

	if err := randr.Init(conn); err != nil {
		return nil, fmt.Errorf("randr: %w", err)
	}
	root := xproto.Setup(conn).DefaultScreen(conn).Root
	res, err := randr.GetScreenResourcesCurrent(conn, root).Reply()
	if err != nil {
		return nil, fmt.Errorf("screen resources: %w", err)
	}

	modes := make(map[uint32]randr.ModeInfo, len(res.Modes))
	for _, m := range res.Modes {
		modes[m.Id] = m
	}

	var out []display
	for _, o := range res.Outputs {
		info, err := randr.GetOutputInfo(conn, o, res.ConfigTimestamp).Reply()
		if err != nil || info.Crtc == 0 {
			continue
		}
		crtc, err := randr.GetCrtcInfo(conn, info.Crtc, res.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		out = append(out, display{
			Bounds:      image.Rect(int(crtc.X), int(crtc.Y), int(crtc.X)+int(crtc.Width), int(crtc.Y)+int(crtc.Height)),
			RefreshRate: refreshRate(modes[uint32(crtc.Mode)]),
			Device:      string(info.Name),
		})
	}
	return out, nil
}

// refreshRate rounds the vertical refresh of a mode to whole hertz.
func refreshRate(m randr.ModeInfo) int {
	if m.Htotal == 0 || m.Vtotal == 0 {
		return 0
	}
	return int(math.Round(float64(m.DotClock) / (float64(m.Htotal) * float64(m.Vtotal))))
}

// Package targets enumerates the monitors and windows that can be captured.
package targets

import (
	"errors"
	"fmt"
	"image"
)

// ErrUnknownTarget is returned by Resolve when no target has the given id.
var ErrUnknownTarget = errors.New("unknown target")

// Kind says whether a target is a whole monitor or a single window.
type Kind string

const (
	KindMonitor Kind = "monitor"
	KindWindow  Kind = "window"
)

// Target describes one capturable surface. Monitors are identified by their
// display index, windows by their native window id.
type Target struct {
	Title       string          `json:"title"`
	Kind        Kind            `json:"type"`
	ID          int             `json:"id"`
	Width       int             `json:"width,omitempty"`
	Height      int             `json:"height,omitempty"`
	RefreshRate int             `json:"refreshRate,omitempty"`
	DeviceName  string          `json:"device,omitempty"`
	Bounds      image.Rectangle `json:"-"`
}

func (t Target) String() string {
	return fmt.Sprintf("%s %d %q (%dx%d)", t.Kind, t.ID, t.Title, t.Width, t.Height)
}

// Resolver lists targets and resolves ids. Monitors are searched before
// windows, so a monitor wins when both share an id.
type Resolver interface {
	Targets() ([]Target, error)
	Resolve(id int) (Target, error)
}

// Static resolves against a fixed list.
type Static []Target

func (s Static) Targets() ([]Target, error) {
	out := make([]Target, len(s))
	copy(out, s)
	return out, nil
}

func (s Static) Resolve(id int) (Target, error) {
	return find(s, id)
}

func find(list []Target, id int) (Target, error) {
	for _, kind := range []Kind{KindMonitor, KindWindow} {
		for _, t := range list {
			if t.Kind == kind && t.ID == id {
				return t, nil
			}
		}
	}
	return Target{}, fmt.Errorf("%w: %d", ErrUnknownTarget, id)
}

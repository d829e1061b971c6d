package capture

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownCommand is returned by ParseCommand for unrecognised names.
var ErrUnknownCommand = errors.New("unknown command")

// CommandKind identifies a control command.
type CommandKind int

const (
	CommandSetFrameRate CommandKind = iota + 1
	CommandSetResolution
	CommandSetWidth
	CommandSetHeight
	CommandStop
)

// Wire names of the commands, as used by remote hosts.
const (
	NameSetFrameRate  = "setFrameRate"
	NameSetResolution = "setResolution"
	NameSetWidth      = "setWidth"
	NameSetHeight     = "setHeight"
	NameStop          = "stop"
)

func (k CommandKind) String() string {
	switch k {
	case CommandSetFrameRate:
		return NameSetFrameRate
	case CommandSetResolution:
		return NameSetResolution
	case CommandSetWidth:
		return NameSetWidth
	case CommandSetHeight:
		return NameSetHeight
	case CommandStop:
		return NameStop
	default:
		return "unknown"
	}
}

// Command is a control message sent from the consumer to the worker.
// Only the fields relevant to Kind are meaningful.
type Command struct {
	Kind      CommandKind
	Width     int
	Height    int
	FrameRate int
}

func SetFrameRate(rate int) Command { return Command{Kind: CommandSetFrameRate, FrameRate: rate} }

func SetResolution(width, height int) Command {
	return Command{Kind: CommandSetResolution, Width: width, Height: height}
}

func SetWidth(width int) Command { return Command{Kind: CommandSetWidth, Width: width} }

func SetHeight(height int) Command { return Command{Kind: CommandSetHeight, Height: height} }

func StopCommand() Command { return Command{Kind: CommandStop} }

// Value renders the command payload in its wire form.
func (c Command) Value() string {
	switch c.Kind {
	case CommandSetFrameRate:
		return strconv.Itoa(c.FrameRate)
	case CommandSetResolution:
		return fmt.Sprintf("%dx%d", c.Width, c.Height)
	case CommandSetWidth:
		return strconv.Itoa(c.Width)
	case CommandSetHeight:
		return strconv.Itoa(c.Height)
	default:
		return ""
	}
}

// ParseCommand decodes the string form of a command. Numeric payloads that
// cannot be parsed become 0; only an unknown name is an error.
func ParseCommand(name, value string) (Command, error) {
	switch name {
	case NameSetFrameRate:
		return SetFrameRate(atoi(value)), nil
	case NameSetResolution:
		w, h := parseResolution(value)
		return SetResolution(w, h), nil
	case NameSetWidth:
		return SetWidth(atoi(value)), nil
	case NameSetHeight:
		return SetHeight(atoi(value)), nil
	case NameStop:
		return StopCommand(), nil
	default:
		return Command{}, fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
}

func parseResolution(value string) (int, int) {
	sep := "x"
	if strings.Contains(value, "@") {
		sep = "@"
	}
	parts := strings.SplitN(value, sep, 2)
	w := atoi(parts[0])
	h := 0
	if len(parts) == 2 {
		h = atoi(parts[1])
	}
	return w, h
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// Settings is the worker's target state. Zero width or height means native
// resolution; zero frame rate means unlimited.
type Settings struct {
	Width     int
	Height    int
	FrameRate int
}

// Apply returns s with c applied. Stop leaves s unchanged.
func (s Settings) Apply(c Command) Settings {
	switch c.Kind {
	case CommandSetFrameRate:
		s.FrameRate = c.FrameRate
	case CommandSetResolution:
		s.Width, s.Height = c.Width, c.Height
	case CommandSetWidth:
		s.Width = c.Width
	case CommandSetHeight:
		s.Height = c.Height
	}
	return s.Normalize()
}

// Normalize clamps negative values to 0 and dimensions to MaxDimension.
func (s Settings) Normalize() Settings {
	s.Width = clamp(s.Width, MaxDimension)
	s.Height = clamp(s.Height, MaxDimension)
	if s.FrameRate < 0 {
		s.FrameRate = 0
	}
	return s
}

func clamp(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

// Resize reports whether frames of size w x h must be resampled.
func (s Settings) Resize(w, h int) bool {
	if s.Width == 0 || s.Height == 0 {
		return false
	}
	return s.Width != w || s.Height != h
}

// Package config parses the command-line flags and optional YAML file of
// each binary.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// MaxFrameRate bounds configured capture rates.
const MaxFrameRate = 240

// Capture selects and shapes the captured target.
type Capture struct {
	Target    int  `yaml:"target"`
	Width     int  `yaml:"width"`
	Height    int  `yaml:"height"`
	FrameRate int  `yaml:"frameRate"`
	PollRate  int  `yaml:"pollRate"`
	Pattern   bool `yaml:"pattern"`
}

// Validate rejects negative values and rates above MaxFrameRate.
func (c Capture) Validate() error {
	var errs []error
	if c.Width < 0 || c.Height < 0 {
		errs = append(errs, fmt.Errorf("resolution %dx%d is negative", c.Width, c.Height))
	}
	if c.FrameRate < 0 || c.FrameRate > MaxFrameRate {
		errs = append(errs, fmt.Errorf("frame rate %d outside 0..%d", c.FrameRate, MaxFrameRate))
	}
	if c.PollRate < 0 || c.PollRate > MaxFrameRate {
		errs = append(errs, fmt.Errorf("poll rate %d outside 0..%d", c.PollRate, MaxFrameRate))
	}
	return errors.Join(errs...)
}

// Log configures the zap logger.
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// PreviewConfig holds configuration for the preview binary.
type PreviewConfig struct {
	Capture Capture `yaml:"capture"`
	Log     Log     `yaml:"log"`
	List    bool    `yaml:"-"`
}

// PublisherConfig holds configuration for the publisher binary.
type PublisherConfig struct {
	SignalingURL string  `yaml:"signaling"`
	ID           string  `yaml:"id"`
	Capture      Capture `yaml:"capture"`
	Log          Log     `yaml:"log"`
}

// ViewerConfig holds configuration for the viewer binary.
type ViewerConfig struct {
	SignalingURL string `yaml:"signaling"`
	ID           string `yaml:"id"`
	PublisherID  string `yaml:"publisher"`
	Log          Log    `yaml:"log"`
}

// ServerConfig holds configuration for the HTTP API server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	PollRate  int    `yaml:"pollRate"`
	Pattern   bool   `yaml:"pattern"`
	Signaling bool   `yaml:"signaling"`
	// IdleTimeout closes API captures nobody refreshed for this long.
	IdleTimeout time.Duration `yaml:"idleTimeout"`
	Log         Log           `yaml:"log"`
}

func bindCapture(fs *flag.FlagSet, c *Capture) {
	fs.IntVar(&c.Target, "target", 0, "Target id to capture (see -list)")
	fs.IntVar(&c.Width, "width", 0, "Output width (0 = native)")
	fs.IntVar(&c.Height, "height", 0, "Output height (0 = native)")
	fs.IntVar(&c.FrameRate, "fps", 30, "Maximum frames per second (0 = unlimited)")
	fs.IntVar(&c.PollRate, "poll", 60, "Capture poll rate in Hz")
	fs.BoolVar(&c.Pattern, "pattern", false, "Capture a synthetic test pattern instead of the screen")
}

func bindLog(fs *flag.FlagSet, l *Log) {
	fs.StringVar(&l.Level, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&l.Development, "dev", false, "Human-readable development logging")
}

// LoadPreview parses args for the preview binary.
func LoadPreview(args []string) (*PreviewConfig, error) {
	cfg := &PreviewConfig{}
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	bindCapture(fs, &cfg.Capture)
	bindLog(fs, &cfg.Log)
	fs.BoolVar(&cfg.List, "list", false, "List capture targets and exit")
	if err := parse(fs, args, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Capture.Validate()
}

// LoadPublisher parses args for the publisher binary.
func LoadPublisher(args []string) (*PublisherConfig, error) {
	cfg := &PublisherConfig{}
	fs := flag.NewFlagSet("publisher", flag.ContinueOnError)
	fs.StringVar(&cfg.SignalingURL, "signaling", "ws://localhost:8090/v1/signal", "Signaling server WebSocket URL")
	fs.StringVar(&cfg.ID, "id", "", "Publisher ID (auto-generated if empty)")
	bindCapture(fs, &cfg.Capture)
	bindLog(fs, &cfg.Log)
	if err := parse(fs, args, cfg); err != nil {
		return nil, err
	}
	if cfg.ID == "" {
		cfg.ID = "publisher-" + randomID()
	}
	return cfg, cfg.Capture.Validate()
}

// LoadViewer parses args for the viewer binary.
func LoadViewer(args []string) (*ViewerConfig, error) {
	cfg := &ViewerConfig{}
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	fs.StringVar(&cfg.SignalingURL, "signaling", "ws://localhost:8090/v1/signal", "Signaling server WebSocket URL")
	fs.StringVar(&cfg.ID, "id", "", "Viewer ID (auto-generated if empty)")
	fs.StringVar(&cfg.PublisherID, "publisher", "", "Publisher ID to connect to (required)")
	bindLog(fs, &cfg.Log)
	if err := parse(fs, args, cfg); err != nil {
		return nil, err
	}
	if cfg.PublisherID == "" {
		return nil, errors.New("-publisher is required")
	}
	if cfg.ID == "" {
		cfg.ID = "viewer-" + randomID()
	}
	return cfg, nil
}

// LoadServer parses args for the API server.
func LoadServer(args []string) (*ServerConfig, error) {
	cfg := &ServerConfig{}
	fs := flag.NewFlagSet("screencapd", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", ":8090", "HTTP listen address")
	fs.IntVar(&cfg.PollRate, "poll", 60, "Capture poll rate in Hz")
	fs.BoolVar(&cfg.Pattern, "pattern", false, "Serve a synthetic test pattern for every target")
	fs.BoolVar(&cfg.Signaling, "signaling", true, "Serve the WebRTC signaling relay at /v1/signal")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", 2*time.Minute, "Close captures without requests for this long (0 = never)")
	bindLog(fs, &cfg.Log)
	if err := parse(fs, args, cfg); err != nil {
		return nil, err
	}
	if cfg.PollRate < 0 || cfg.PollRate > MaxFrameRate {
		return nil, fmt.Errorf("poll rate %d outside 0..%d", cfg.PollRate, MaxFrameRate)
	}
	if cfg.IdleTimeout < 0 {
		return nil, fmt.Errorf("idle timeout %v is negative", cfg.IdleTimeout)
	}
	return cfg, nil
}

// ParsePreviewFlags parses the process flags for the preview binary.
func ParsePreviewFlags() *PreviewConfig { return must(LoadPreview(os.Args[1:])) }

// ParsePublisherFlags parses the process flags for the publisher binary.
func ParsePublisherFlags() *PublisherConfig { return must(LoadPublisher(os.Args[1:])) }

// ParseViewerFlags parses the process flags for the viewer binary.
func ParseViewerFlags() *ViewerConfig { return must(LoadViewer(os.Args[1:])) }

// ParseServerFlags parses the process flags for the API server.
func ParseServerFlags() *ServerConfig { return must(LoadServer(os.Args[1:])) }

func must[T any](cfg T, err error) T {
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// parse applies flag defaults, then the -config file, then the flags the
// user actually set.
func parse(fs *flag.FlagSet, args []string, dst any) error {
	var path string
	fs.StringVar(&path, "config", "", "YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if path == "" {
		return nil
	}

	// The flags share their fields with the file, so remember what the
	// command line said before the file overwrites it.
	explicit := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		if f.Name != "config" {
			explicit[f.Name] = f.Value.String()
		}
	})

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("flag -%s: %w", name, err)
		}
	}
	return nil
}

func randomID() string {
	return uuid.NewString()[:8]
}

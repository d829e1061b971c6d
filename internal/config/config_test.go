package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "screencap.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPreviewDefaults(t *testing.T) {
	cfg, err := LoadPreview(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := Capture{FrameRate: 30, PollRate: 60}
	if cfg.Capture != want {
		t.Errorf("Capture = %+v, want %+v", cfg.Capture, want)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
signaling: ws://relay.example:9000/v1/signal
id: studio
capture:
  target: 3
  width: 1280
  height: 720
  frameRate: 24
log:
  level: debug
`)
	cfg, err := LoadPublisher([]string{"-config", path, "-fps", "10", "-width", "640"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SignalingURL != "ws://relay.example:9000/v1/signal" || cfg.ID != "studio" {
		t.Errorf("file values lost: %+v", cfg)
	}
	want := Capture{Target: 3, Width: 640, Height: 720, FrameRate: 10, PollRate: 60}
	if cfg.Capture != want {
		t.Errorf("Capture = %+v, want %+v", cfg.Capture, want)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestGeneratedIDs(t *testing.T) {
	a, err := LoadPublisher(nil)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := LoadPublisher(nil)
	if !strings.HasPrefix(a.ID, "publisher-") || a.ID == b.ID {
		t.Errorf("ids %q, %q", a.ID, b.ID)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		args []string
		ok   bool
	}{
		{"negative_width", []string{"-width", "-1"}, false},
		{"negative_fps", []string{"-fps", "-3"}, false},
		{"fps_too_high", []string{"-fps", "500"}, false},
		{"unlimited", []string{"-fps", "0"}, true},
		{"bad_flag", []string{"-nope"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadPreview(tc.args)
			if (err == nil) != tc.ok {
				t.Errorf("err = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestLoadViewerRequiresPublisher(t *testing.T) {
	if _, err := LoadViewer(nil); err == nil {
		t.Error("missing -publisher accepted")
	}
	cfg, err := LoadViewer([]string{"-publisher", "publisher-1"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(cfg.ID, "viewer-") {
		t.Errorf("ID = %q", cfg.ID)
	}
}

func TestLoadServerFile(t *testing.T) {
	path := writeConfig(t, "addr: 127.0.0.1:7000\npattern: true\nsignaling: false\nidleTimeout: 45s\n")
	cfg, err := LoadServer([]string{"-config", path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != "127.0.0.1:7000" || !cfg.Pattern || cfg.Signaling || cfg.IdleTimeout != 45*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}

	cfg, err = LoadServer([]string{"-config", path, "-pattern=false", "-addr", ":9999", "-idle-timeout", "0"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9999" || cfg.Pattern || cfg.IdleTimeout != 0 {
		t.Errorf("flags did not override the file: %+v", cfg)
	}
	if _, err := LoadServer([]string{"-idle-timeout", "-1s"}); err == nil {
		t.Error("negative idle timeout accepted")
	}
	if _, err := LoadServer([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Error("missing file accepted")
	}
}

func TestCaptureOptions(t *testing.T) {
	c := Capture{Target: 2, Width: 320, Height: 200, FrameRate: 12, Pattern: true}
	opts := c.Options()
	if opts.Target != 2 || opts.Width != 320 || opts.Height != 200 || opts.FrameRate != 12 {
		t.Errorf("Options() = %+v", opts)
	}
	if n := len(c.HandleOptions(nil)); n != 4 {
		t.Errorf("pattern mode options = %d, want 4", n)
	}
	c.Pattern = false
	if n := len(c.HandleOptions(nil)); n != 2 {
		t.Errorf("system options = %d, want 2", n)
	}
}

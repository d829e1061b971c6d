package main

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"github.com/junsooki/screencap"
	"github.com/junsooki/screencap/internal/config"
	"github.com/junsooki/screencap/internal/display"
	"github.com/junsooki/screencap/internal/logging"
	"github.com/junsooki/screencap/internal/permissions"
)

func main() {
	cfg := config.ParsePreviewFlags()

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.List {
		list, err := screencap.GetTargets()
		if err != nil {
			logger.Fatal("list targets", zap.Error(err))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(list)
		return
	}

	if !cfg.Capture.Pattern {
		if err := permissions.EnsureScreenRecording(logger); err != nil {
			logger.Fatal("Please grant Screen Recording permission in System Settings and restart.", zap.Error(err))
		}
	}

	h, err := screencap.New(cfg.Capture.Options(), cfg.Capture.HandleOptions(logger)...)
	if err != nil {
		logger.Fatal("capture init", zap.Error(err))
	}
	defer h.Close()
	h.OnClose(func() { logger.Info("capture ended") })

	logger.Info("preview starting",
		zap.String("version", screencap.Version),
		zap.Stringer("target", h.Target()),
		zap.Int("fps", cfg.Capture.FrameRate),
	)

	// Ebitengine RunGame must be on the main goroutine (macOS requirement).
	win := display.NewWindow("screencap preview", display.NewLocalSource(h), h, cfg.Capture.FrameRate, logger)
	if err := win.Run(); err != nil {
		logger.Error("display", zap.Error(err))
	}
	if err := h.Err(); err != nil {
		logger.Error("capture failed", zap.Error(err))
	}
}

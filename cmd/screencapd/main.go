package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/junsooki/screencap"
	"github.com/junsooki/screencap/internal/api"
	"github.com/junsooki/screencap/internal/config"
	"github.com/junsooki/screencap/internal/logging"
	"github.com/junsooki/screencap/internal/signaling"
)

func main() {
	cfg := config.ParseServerFlags()

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	opts := config.SourceOptions(cfg.Pattern, cfg.PollRate, logger)
	factory := func(o screencap.Options) (*screencap.Handle, error) {
		return screencap.New(o, opts...)
	}
	lister := screencap.GetTargets
	if cfg.Pattern {
		lister = config.PatternTargets.Targets
	}

	var hub http.Handler
	if cfg.Signaling {
		hub = signaling.NewHub(logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("screencapd starting", zap.String("version", screencap.Version), zap.Bool("pattern", cfg.Pattern))
	if err := api.NewServer(factory, lister, hub, logger, api.WithIdleTimeout(cfg.IdleTimeout)).Run(ctx, cfg.Addr); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}

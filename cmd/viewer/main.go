package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/junsooki/screencap/internal/capture"
	"github.com/junsooki/screencap/internal/config"
	"github.com/junsooki/screencap/internal/display"
	"github.com/junsooki/screencap/internal/logging"
	"github.com/junsooki/screencap/internal/peer"
	"github.com/junsooki/screencap/internal/signaling"
	"github.com/junsooki/screencap/internal/transport"
)

// remoteSink forwards key commands to the publisher.
type remoteSink struct {
	mu     sync.Mutex
	peer   *peer.Viewer
	logger *zap.Logger
}

func (s *remoteSink) set(v *peer.Viewer) {
	s.mu.Lock()
	s.peer = v
	s.mu.Unlock()
}

func (s *remoteSink) Apply(cmd capture.Command) {
	s.mu.Lock()
	v := s.peer
	s.mu.Unlock()
	if v == nil {
		return
	}
	if err := v.Transport().SendControl(transport.ControlFor(cmd)); err != nil {
		s.logger.Warn("send control", zap.Error(err))
	}
}

func main() {
	cfg := config.ParseViewerFlags()

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("viewer starting",
		zap.String("id", cfg.ID),
		zap.String("signaling", cfg.SignalingURL),
		zap.String("publisher", cfg.PublisherID),
	)

	frames := display.NewRemoteSource()
	sink := &remoteSink{logger: logger}
	var viewer *peer.Viewer

	onState := func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			frames.Close()
		}
	}

	// Signaling.
	var sig *signaling.Client
	sig = signaling.NewClient(cfg.SignalingURL, cfg.ID, signaling.RoleViewer, signaling.Handler{
		OnRegistered: func() {
			logger.Info("registered with signaling server")

			// Create peer and send offer.
			v, err := peer.NewViewer(sig, cfg.PublisherID, logger, onState)
			if err != nil {
				logger.Error("create viewer peer", zap.Error(err))
				frames.Close()
				return
			}
			v.Transport().OnFrame(frames.Push)
			v.Transport().OnControl(func(m transport.ControlMessage) {
				if m.Closed() {
					logger.Info("publisher capture closed")
					frames.Close()
				}
			})
			viewer = v
			sink.set(v)

			if err := v.Connect(); err != nil {
				logger.Error("viewer connect", zap.Error(err))
			}
		},
		OnAnswer: func(from string, payload json.RawMessage) {
			if viewer != nil {
				if err := viewer.HandleAnswer(payload); err != nil {
					logger.Warn("handle answer", zap.Error(err))
				}
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if viewer != nil {
				if err := viewer.HandleICECandidate(payload); err != nil {
					logger.Warn("handle ICE candidate", zap.Error(err))
				}
			}
		},
		OnPublisherGone: func(id string) {
			if id == cfg.PublisherID {
				logger.Info("publisher disconnected")
				frames.Close()
			}
		},
		OnError: func(msg string) {
			logger.Warn("signaling error", zap.String("message", msg))
		},
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = sig.Connect(ctx)
	cancel()
	if err != nil {
		logger.Fatal("signaling connect", zap.Error(err))
	}
	defer sig.Close()

	// Ebitengine RunGame must be on the main goroutine (macOS requirement).
	win := display.NewWindow("screencap viewer: "+cfg.PublisherID, frames, sink, 0, logger)
	if err := win.Run(); err != nil {
		logger.Error("display", zap.Error(err))
	}

	if viewer != nil {
		viewer.Close()
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/junsooki/screencap"
	"github.com/junsooki/screencap/internal/capture"
	"github.com/junsooki/screencap/internal/config"
	"github.com/junsooki/screencap/internal/logging"
	"github.com/junsooki/screencap/internal/peer"
	"github.com/junsooki/screencap/internal/permissions"
	"github.com/junsooki/screencap/internal/signaling"
	"github.com/junsooki/screencap/internal/transport"
)

// session tracks the one viewer currently connected.
type session struct {
	mu  sync.Mutex
	pub *peer.Publisher
}

func (s *session) replace(p *peer.Publisher) {
	s.mu.Lock()
	old := s.pub
	s.pub = p
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

func (s *session) current() *peer.Publisher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pub
}

func main() {
	cfg := config.ParsePublisherFlags()

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("publisher starting",
		zap.String("id", cfg.ID),
		zap.String("signaling", cfg.SignalingURL),
		zap.Int("target", cfg.Capture.Target),
		zap.Int("fps", cfg.Capture.FrameRate),
	)

	// Check permissions.
	if !cfg.Capture.Pattern {
		if err := permissions.EnsureScreenRecording(logger); err != nil {
			logger.Fatal("Please grant Screen Recording permission in System Settings and restart.", zap.Error(err))
		}
	}

	// Screen capture.
	h, err := screencap.New(cfg.Capture.Options(), cfg.Capture.HandleOptions(logger)...)
	if err != nil {
		logger.Fatal("capture init", zap.Error(err))
	}
	defer h.Close()

	var sess session
	var sig *signaling.Client

	// Signaling.
	sig = signaling.NewClient(cfg.SignalingURL, cfg.ID, signaling.RolePublisher, signaling.Handler{
		OnRegistered: func() {
			logger.Info("registered with signaling server")
		},
		OnOffer: func(from string, payload json.RawMessage) {
			logger.Info("received offer", zap.String("from", from))
			p, err := peer.NewPublisher(sig, logger, nil)
			if err != nil {
				logger.Error("create publisher peer", zap.Error(err))
				return
			}

			// Remote control messages drive the capture handle.
			p.Transport().OnControl(func(m transport.ControlMessage) {
				cmd, err := m.Decode()
				if err != nil {
					logger.Warn("control message", zap.Error(err))
					return
				}
				logger.Debug("remote command", zap.Stringer("command", cmd.Kind), zap.String("value", m.Value))
				h.Apply(cmd)
			})

			if err := p.HandleOffer(from, payload); err != nil {
				logger.Error("handle offer", zap.Error(err))
				p.Close()
				return
			}
			sess.replace(p)
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if p := sess.current(); p != nil {
				if err := p.HandleICECandidate(payload); err != nil {
					logger.Warn("handle ICE candidate", zap.Error(err))
				}
			}
		},
		OnError: func(msg string) {
			logger.Warn("signaling error", zap.String("message", msg))
		},
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = sig.Connect(dialCtx)
	cancel()
	if err != nil {
		logger.Fatal("signaling connect", zap.Error(err))
	}
	defer sig.Close()

	logger.Info("publisher ready, share this ID with viewers", zap.String("id", cfg.ID))

	pollRate := cfg.Capture.PollRate
	if pollRate <= 0 {
		pollRate = capture.DefaultPollRate
	}
	streamFrames(ctx, h, &sess, time.Second/time.Duration(pollRate), logger)

	logger.Info("shutting down")
	sess.replace(nil)
	if err := h.Err(); err != nil {
		logger.Error("capture failed", zap.Error(err))
		os.Exit(1)
	}
}

// streamFrames is the host loop: it refreshes the handle every tick and
// sends each new frame to the connected viewer.
func streamFrames(ctx context.Context, h *screencap.Handle, sess *session, tick time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	closed := false
	h.OnClose(func() { closed = true })

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		f := h.Refresh(false)
		p := sess.current()
		if closed {
			logger.Info("capture closed")
			if p != nil {
				_ = p.Transport().SendControl(transport.ControlMessage{Command: transport.NameClosed})
			}
			return
		}
		if f.Empty() || f.Seq == lastSeq || p == nil {
			continue
		}
		lastSeq = f.Seq
		if err := p.Transport().SendFrame(f); err != nil && !errors.Is(err, transport.ErrCongested) {
			logger.Debug("send frame", zap.Error(err))
		}
	}
}

// Package api exposes capture handles over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/junsooki/screencap"
)

// Factory creates capture handles.
type Factory func(opts screencap.Options) (*screencap.Handle, error)

// Lister enumerates capture targets.
type Lister func() ([]screencap.Target, error)

// DefaultIdleTimeout is how long a capture may go without any request
// before the server closes it.
const DefaultIdleTimeout = 2 * time.Minute

// Server owns the captures created over HTTP. A capture keeps queueing
// frames until a client refreshes it, so captures nobody touches for the
// idle timeout are closed.
type Server struct {
	factory     Factory
	targets     Lister
	signal      http.Handler
	logger      *zap.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	captures map[string]*entry
}

type entry struct {
	handle   *screencap.Handle
	lastUsed time.Time
}

// ServerOption configures NewServer.
type ServerOption func(*Server)

// WithIdleTimeout sets the idle timeout. Zero keeps captures forever.
func WithIdleTimeout(d time.Duration) ServerOption {
	return func(r *Server) { r.idleTimeout = d }
}

func WithClock(now func() time.Time) ServerOption {
	return func(r *Server) { r.now = now }
}

// NewServer creates a server. signal, if non-nil, is mounted at /v1/signal.
func NewServer(factory Factory, targets Lister, signal http.Handler, logger *zap.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Server{
		factory:     factory,
		targets:     targets,
		signal:      signal,
		logger:      logger.Named("api"),
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		captures:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run serves on addr until ctx is cancelled, then closes every capture.
func (r *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	if r.idleTimeout > 0 {
		go r.reapLoop(ctx)
	}
	go func() {
		r.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		r.CloseAll()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	r.CloseAll()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// CloseAll closes and forgets every capture.
func (r *Server) CloseAll() {
	r.mu.Lock()
	captures := r.captures
	r.captures = make(map[string]*entry)
	r.mu.Unlock()

	for id, e := range captures {
		r.closeCapture(id, e.handle)
	}
}

// ReapIdle closes every capture unused for longer than the idle timeout
// and returns how many it closed.
func (r *Server) ReapIdle() int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTimeout)
	idle := make(map[string]*screencap.Handle)
	r.mu.Lock()
	for id, e := range r.captures {
		if e.lastUsed.Before(cutoff) {
			idle[id] = e.handle
			delete(r.captures, id)
		}
	}
	r.mu.Unlock()

	for id, h := range idle {
		r.logger.Info("closing idle capture", zap.String("id", id))
		r.closeCapture(id, h)
	}
	return len(idle)
}

func (r *Server) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(max(r.idleTimeout/2, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReapIdle()
		}
	}
}

func (r *Server) closeCapture(id string, h *screencap.Handle) {
	if err := h.Close(); err != nil {
		r.logger.Warn("close capture", zap.String("id", id), zap.Error(err))
	}
}

// Handler returns the HTTP routes.
func (r *Server) Handler() http.Handler {
	return r.newAPI()
}

func (r *Server) newAPI() *gin.Engine {
	eng := gin.New()
	eng.Use(gin.Recovery(), r.accessLog)

	apiV1 := eng.Group("/v1")
	apiV1.GET("/health", r.health)
	apiV1.GET("/version", r.version)
	apiV1.GET("/targets", r.listTargets)

	apiV1.POST("/captures", r.createCapture)
	apiV1.GET("/captures", r.listCaptures)

	capture := apiV1.Group("/captures/:id", r.lookup)
	capture.GET("", r.getCapture)
	capture.DELETE("", r.deleteCapture)
	capture.PUT("/frame-rate", r.setFrameRate)
	capture.PUT("/resolution", r.setResolution)
	capture.PUT("/width", r.setWidth)
	capture.PUT("/height", r.setHeight)
	capture.POST("/commands", r.postCommand)
	capture.POST("/stop", r.stopCapture)
	capture.POST("/refresh", r.refresh)
	capture.GET("/frame", r.getFrame)

	if r.signal != nil {
		apiV1.GET("/signal", gin.WrapH(r.signal))
	}
	return eng
}

func (r *Server) accessLog(ctx *gin.Context) {
	start := time.Now()
	ctx.Next()
	r.logger.Debug("request",
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.FullPath()),
		zap.Int("status", ctx.Writer.Status()),
		zap.Duration("took", time.Since(start)),
	)
}

func (r *Server) add(h *screencap.Handle) {
	r.mu.Lock()
	r.captures[h.ID()] = &entry{handle: h, lastUsed: r.now()}
	r.mu.Unlock()
}

// get returns the capture and marks it as used.
func (r *Server) get(id string) *screencap.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.captures[id]
	if e == nil {
		return nil
	}
	e.lastUsed = r.now()
	return e.handle
}

func (r *Server) remove(id string) *screencap.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.captures[id]
	if e == nil {
		return nil
	}
	delete(r.captures, id)
	return e.handle
}

package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/junsooki/screencap"
	"github.com/junsooki/screencap/internal/capture"
	"github.com/junsooki/screencap/internal/snapshot"
)

const handleKey = "handle"

type errorResponse struct {
	Error string `json:"error"`
}

type captureStatus struct {
	ID        string           `json:"id"`
	Target    screencap.Target `json:"target"`
	Running   bool             `json:"running"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	FrameRate int              `json:"frameRate"`
	Error     string           `json:"error,omitempty"`
}

type frameRateRequest struct {
	FrameRate *int `json:"frameRate" binding:"required"`
}

type resolutionRequest struct {
	Width  *int `json:"width" binding:"required"`
	Height *int `json:"height" binding:"required"`
}

type widthRequest struct {
	Width *int `json:"width" binding:"required"`
}

type heightRequest struct {
	Height *int `json:"height" binding:"required"`
}

type commandRequest struct {
	Command string `json:"command" binding:"required"`
	Value   string `json:"value"`
}

func abort(ctx *gin.Context, code int, err error) {
	ctx.AbortWithStatusJSON(code, errorResponse{Error: err.Error()})
}

func (r *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Server) version(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"version": screencap.Version})
}

func (r *Server) listTargets(ctx *gin.Context) {
	list, err := r.targets()
	if err != nil {
		r.logger.Error("list targets", zap.Error(err))
		abort(ctx, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []screencap.Target{}
	}
	ctx.JSON(http.StatusOK, list)
}

func (r *Server) createCapture(ctx *gin.Context) {
	var opts screencap.Options
	if err := ctx.ShouldBindJSON(&opts); err != nil {
		abort(ctx, http.StatusBadRequest, err)
		return
	}
	h, err := r.factory(opts)
	switch {
	case errors.Is(err, screencap.ErrInvalidTarget), errors.Is(err, screencap.ErrInvalidOptions):
		abort(ctx, http.StatusBadRequest, err)
		return
	case err != nil:
		r.logger.Error("create capture", zap.Error(err))
		abort(ctx, http.StatusInternalServerError, err)
		return
	}
	r.add(h)
	ctx.JSON(http.StatusCreated, gin.H{"id": h.ID()})
}

func (r *Server) listCaptures(ctx *gin.Context) {
	r.mu.Lock()
	out := make([]captureStatus, 0, len(r.captures))
	for _, e := range r.captures {
		out = append(out, status(e.handle))
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	ctx.JSON(http.StatusOK, out)
}

// lookup resolves :id for every per-capture route.
func (r *Server) lookup(ctx *gin.Context) {
	h := r.get(ctx.Param("id"))
	if h == nil {
		abort(ctx, http.StatusNotFound, errors.New("no such capture"))
		return
	}
	ctx.Set(handleKey, h)
	ctx.Next()
}

func handleOf(ctx *gin.Context) *screencap.Handle {
	return ctx.MustGet(handleKey).(*screencap.Handle)
}

func status(h *screencap.Handle) captureStatus {
	w, hh := h.Resolution()
	s := captureStatus{
		ID:        h.ID(),
		Target:    h.Target(),
		Running:   h.IsRunning(),
		Width:     w,
		Height:    hh,
		FrameRate: h.FrameRate(),
	}
	if err := h.Err(); err != nil {
		s.Error = err.Error()
	}
	return s
}

func (r *Server) getCapture(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, status(handleOf(ctx)))
}

func (r *Server) deleteCapture(ctx *gin.Context) {
	h := r.remove(ctx.Param("id"))
	if h == nil {
		ctx.Status(http.StatusNoContent)
		return
	}
	if err := h.Close(); err != nil {
		r.logger.Warn("close capture", zap.String("id", h.ID()), zap.Error(err))
	}
	ctx.Status(http.StatusNoContent)
}

func (r *Server) setFrameRate(ctx *gin.Context) {
	var req frameRateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		abort(ctx, http.StatusBadRequest, err)
		return
	}
	handleOf(ctx).SetFrameRate(*req.FrameRate)
	ctx.Status(http.StatusAccepted)
}

func (r *Server) setResolution(ctx *gin.Context) {
	var req resolutionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		abort(ctx, http.StatusBadRequest, err)
		return
	}
	handleOf(ctx).SetResolution(*req.Width, *req.Height)
	ctx.Status(http.StatusAccepted)
}

func (r *Server) setWidth(ctx *gin.Context) {
	var req widthRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		abort(ctx, http.StatusBadRequest, err)
		return
	}
	handleOf(ctx).SetWidth(*req.Width)
	ctx.Status(http.StatusAccepted)
}

func (r *Server) setHeight(ctx *gin.Context) {
	var req heightRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		abort(ctx, http.StatusBadRequest, err)
		return
	}
	handleOf(ctx).SetHeight(*req.Height)
	ctx.Status(http.StatusAccepted)
}

func (r *Server) postCommand(ctx *gin.Context) {
	var req commandRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		abort(ctx, http.StatusBadRequest, err)
		return
	}
	cmd, err := capture.ParseCommand(req.Command, req.Value)
	if err != nil {
		abort(ctx, http.StatusBadRequest, err)
		return
	}
	handleOf(ctx).Apply(cmd)
	ctx.Status(http.StatusAccepted)
}

func (r *Server) stopCapture(ctx *gin.Context) {
	handleOf(ctx).Stop()
	ctx.Status(http.StatusAccepted)
}

func (r *Server) refresh(ctx *gin.Context) {
	suppress, _ := strconv.ParseBool(ctx.Query("suppress"))
	writeFrame(ctx, handleOf(ctx).Refresh(suppress))
}

func (r *Server) getFrame(ctx *gin.Context) {
	writeFrame(ctx, handleOf(ctx).Frame())
}

// writeFrame sends the frame in the ?format= the client asked for, raw
// RGBA rows by default. The empty frame is a 204.
func writeFrame(ctx *gin.Context, f capture.Frame) {
	format, err := snapshot.ParseFormat(ctx.Query("format"))
	if err != nil {
		abort(ctx, http.StatusBadRequest, err)
		return
	}
	if f.Empty() {
		ctx.Status(http.StatusNoContent)
		return
	}
	quality, _ := strconv.Atoi(ctx.Query("quality"))
	data, err := snapshot.New(format, quality).Encode(f)
	if err != nil {
		abort(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.Header("X-Frame-Width", strconv.Itoa(f.Width))
	ctx.Header("X-Frame-Height", strconv.Itoa(f.Height))
	ctx.Header("X-Frame-Seq", strconv.FormatUint(f.Seq, 10))
	ctx.Data(http.StatusOK, format.ContentType(), data)
}

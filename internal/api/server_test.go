package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/junsooki/screencap"
	"github.com/junsooki/screencap/internal/capture"
	"github.com/junsooki/screencap/internal/capture/capturetest"
	"github.com/junsooki/screencap/internal/targets"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testTargets = targets.Static{
	{Title: "Display 1", Kind: targets.KindMonitor, ID: 0, Width: 64, Height: 48},
}

type fixture struct {
	t       *testing.T
	srv     *Server
	handler http.Handler
	sources []*capturetest.Source
}

func newFixture(t *testing.T, opts ...ServerOption) *fixture {
	f := &fixture{t: t}
	factory := func(opts screencap.Options) (*screencap.Handle, error) {
		src := capturetest.New()
		h, err := screencap.New(opts,
			screencap.WithResolver(testTargets),
			screencap.WithBackend(func(screencap.Target) (capture.Source, error) { return src, nil }),
		)
		if err == nil {
			f.sources = append(f.sources, src)
		}
		return h, err
	}
	f.srv = NewServer(factory, testTargets.Targets, nil, nil, opts...)
	f.handler = f.srv.Handler()
	t.Cleanup(f.srv.CloseAll)
	return f
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			f.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) create(opts map[string]int) string {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/v1/captures", opts)
	if rec.Code != http.StatusCreated {
		f.t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var resp struct{ ID string }
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		f.t.Fatal(err)
	}
	return resp.ID
}

func (f *fixture) status(id string) captureStatus {
	f.t.Helper()
	rec := f.do(http.MethodGet, "/v1/captures/"+id, nil)
	if rec.Code != http.StatusOK {
		f.t.Fatalf("status: %d %s", rec.Code, rec.Body)
	}
	var s captureStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		f.t.Fatal(err)
	}
	return s
}

func TestInfoRoutes(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(http.MethodGet, "/v1/health", nil); rec.Code != http.StatusOK {
		t.Errorf("health: %d", rec.Code)
	}

	rec := f.do(http.MethodGet, "/v1/version", nil)
	var v struct{ Version string }
	_ = json.Unmarshal(rec.Body.Bytes(), &v)
	if v.Version != screencap.Version {
		t.Errorf("version = %q, want %q", v.Version, screencap.Version)
	}

	rec = f.do(http.MethodGet, "/v1/targets", nil)
	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0]["type"] != "monitor" || list[0]["title"] != "Display 1" {
		t.Errorf("targets = %v", list)
	}
}

func TestTargetsError(t *testing.T) {
	srv := NewServer(nil, func() ([]screencap.Target, error) { return nil, errors.New("no display") }, nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/targets", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
}

func TestCreateErrors(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		body any
		want int
	}{
		{"unknown_target", map[string]int{"target": 9}, http.StatusBadRequest},
		{"negative_width", map[string]int{"target": 0, "width": -4}, http.StatusBadRequest},
		{"not_json", "nope", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := f.do(http.MethodPost, "/v1/captures", tc.body); rec.Code != tc.want {
				t.Errorf("code = %d, want %d (%s)", rec.Code, tc.want, rec.Body)
			}
		})
	}
	if rec := f.do(http.MethodGet, "/v1/captures/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown capture: %d", rec.Code)
	}
}

func TestCaptureLifecycle(t *testing.T) {
	f := newFixture(t)
	id := f.create(map[string]int{"target": 0, "frameRate": 0})
	src := f.sources[0]

	// Nothing captured yet.
	if rec := f.do(http.MethodGet, "/v1/captures/"+id+"/frame", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("frame before capture: %d", rec.Code)
	}

	src.EmitSolid(64, 48, color.RGBA{G: 0xff, A: 0xff})
	rec := f.do(http.MethodPost, "/v1/captures/"+id+"/refresh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d", rec.Code)
	}
	if rec.Header().Get("X-Frame-Width") != "64" || rec.Header().Get("X-Frame-Height") != "48" {
		t.Errorf("headers = %v", rec.Header())
	}
	if rec.Body.Len() != 64*48*4 || rec.Body.Bytes()[1] != 0xff {
		t.Errorf("body = %d bytes", rec.Body.Len())
	}

	if rec := f.do(http.MethodPost, "/v1/captures/"+id+"/refresh?suppress=true", nil); rec.Code != http.StatusNoContent {
		t.Errorf("suppressed refresh: %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/v1/captures/"+id+"/frame", nil); rec.Body.Len() != 64*48*4 {
		t.Errorf("frame after suppressed refresh: %d bytes", rec.Body.Len())
	}

	for _, req := range []struct {
		path string
		body any
	}{
		{"/frame-rate", map[string]int{"frameRate": 15}},
		{"/resolution", map[string]int{"width": 32, "height": 24}},
		{"/width", map[string]int{"width": 16}},
	} {
		if rec := f.do(http.MethodPut, "/v1/captures/"+id+req.path, req.body); rec.Code != http.StatusAccepted {
			t.Errorf("PUT %s: %d %s", req.path, rec.Code, rec.Body)
		}
	}
	if rec := f.do(http.MethodPut, "/v1/captures/"+id+"/height", map[string]int{}); rec.Code != http.StatusBadRequest {
		t.Errorf("PUT /height without value: %d", rec.Code)
	}

	s := f.status(id)
	if s.Width != 16 || s.Height != 24 || s.FrameRate != 15 || !s.Running {
		t.Errorf("status = %+v", s)
	}

	src.EmitSolid(64, 48, color.RGBA{A: 0xff})
	rec = f.do(http.MethodPost, "/v1/captures/"+id+"/refresh", nil)
	if rec.Header().Get("X-Frame-Width") != "16" || rec.Header().Get("X-Frame-Height") != "24" {
		t.Errorf("resized frame headers = %v", rec.Header())
	}

	if rec := f.do(http.MethodPost, "/v1/captures/"+id+"/commands", map[string]string{"command": "stop"}); rec.Code != http.StatusAccepted {
		t.Fatalf("stop command: %d", rec.Code)
	}
	src.EmitSolid(64, 48, color.RGBA{A: 0xff})
	if rec := f.do(http.MethodPost, "/v1/captures/"+id+"/refresh", nil); rec.Code != http.StatusNoContent {
		t.Errorf("refresh after stop: %d", rec.Code)
	}
	if f.status(id).Running {
		t.Error("still running after stop")
	}

	if rec := f.do(http.MethodDelete, "/v1/captures/"+id, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete: %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/v1/captures/"+id, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", rec.Code)
	}
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	id := f.create(map[string]int{"target": 0})
	rec := f.do(http.MethodPost, "/v1/captures/"+id+"/commands", map[string]string{"command": "explode"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", rec.Code)
	}
}

func TestListCaptures(t *testing.T) {
	f := newFixture(t)
	a := f.create(map[string]int{"target": 0})
	b := f.create(map[string]int{"target": 0, "width": 10, "height": 10})

	rec := f.do(http.MethodGet, "/v1/captures", nil)
	var list []captureStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("captures = %d, want 2", len(list))
	}
	seen := map[string]bool{list[0].ID: true, list[1].ID: true}
	if !seen[a] || !seen[b] {
		t.Errorf("list = %+v", list)
	}
}

func TestFrameFormats(t *testing.T) {
	f := newFixture(t)
	id := f.create(map[string]int{"target": 0, "frameRate": 0})
	f.sources[0].EmitSolid(64, 48, color.RGBA{B: 0xff, A: 0xff})
	if rec := f.do(http.MethodPost, "/v1/captures/"+id+"/refresh", nil); rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d", rec.Code)
	}

	rec := f.do(http.MethodGet, "/v1/captures/"+id+"/frame?format=png", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("png: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("png bounds = %v", b)
	}

	rec = f.do(http.MethodGet, "/v1/captures/"+id+"/frame?format=jpeg&quality=50", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("jpeg: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	if rec := f.do(http.MethodGet, "/v1/captures/"+id+"/frame?format=gif", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("gif: %d, want 400", rec.Code)
	}
}

func TestIdleCapturesAreClosed(t *testing.T) {
	now := time.Unix(1700000000, 0)
	f := newFixture(t, WithIdleTimeout(time.Minute), WithClock(func() time.Time { return now }))
	busy := f.create(map[string]int{"target": 0})
	idle := f.create(map[string]int{"target": 0})

	now = now.Add(45 * time.Second)
	f.do(http.MethodPost, "/v1/captures/"+busy+"/refresh", nil)
	now = now.Add(30 * time.Second)

	if n := f.srv.ReapIdle(); n != 1 {
		t.Fatalf("reaped %d captures, want 1", n)
	}
	if rec := f.do(http.MethodGet, "/v1/captures/"+idle, nil); rec.Code != http.StatusNotFound {
		t.Errorf("idle capture: %d, want 404", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/v1/captures/"+busy, nil); rec.Code != http.StatusOK {
		t.Errorf("busy capture: %d, want 200", rec.Code)
	}
}

func TestIdleTimeoutDisabled(t *testing.T) {
	now := time.Unix(1700000000, 0)
	f := newFixture(t, WithIdleTimeout(0), WithClock(func() time.Time { return now }))
	id := f.create(map[string]int{"target": 0})
	now = now.Add(24 * time.Hour)
	if n := f.srv.ReapIdle(); n != 0 {
		t.Errorf("reaped %d captures, want 0", n)
	}
	if rec := f.do(http.MethodGet, "/v1/captures/"+id, nil); rec.Code != http.StatusOK {
		t.Errorf("capture: %d, want 200", rec.Code)
	}
}

package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/facecam/internal/config"
	dbmock "github.com/kozaktomas/facecam/internal/database/mock"
	"github.com/kozaktomas/facecam/internal/gallery"
	"github.com/kozaktomas/facecam/internal/recognition"
	"github.com/kozaktomas/facecam/internal/stream"
)

type idleCamera struct{ running bool }

func (c *idleCamera) Acquire() error { c.running = true; return nil }
func (c *idleCamera) Release() error { c.running = false; return nil }
func (c *idleCamera) Running() bool  { return c.running }

func newTestServer(t *testing.T) (*Server, *idleCamera) {
	t.Helper()
	cfg := config.Load()
	cfg.Web.AllowedOrigins = []string{"https://kiosk.example.com"}
	cam := &idleCamera{}
	cache := gallery.NewCache(dbmock.NewMockGalleryStore(), gallery.Options{
		EmbeddingDim: 128,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return NewServer(cfg, Deps{
		Camera:  cam,
		Frames:  stream.NewBroadcaster(),
		State:   recognition.NewState(),
		Gallery: cache,
	}), cam
}

func TestServer_Routes(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/recognized", http.StatusOK},
		{http.MethodGet, "/api/v1/camera", http.StatusOK},
		{http.MethodGet, "/api/v1/gallery", http.StatusOK},
		{http.MethodPost, "/api/v1/gallery/reload", http.StatusOK},
		{http.MethodGet, "/api/v1/config", http.StatusOK},
		{http.MethodPost, "/api/v1/camera/release", http.StatusOK},
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/missing.js", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			recorder := httptest.NewRecorder()
			s.Router().ServeHTTP(recorder, req)

			if recorder.Code != tc.status {
				t.Errorf("expected %d, got %d: %s", tc.status, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestServer_RecognizedEventsRoute(t *testing.T) {
	s, _ := newTestServer(t)

	// The stream writes its initial event, then ends with the request context.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/recognized/events", nil).WithContext(ctx)
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}
	if !strings.Contains(recorder.Body.String(), "event: recognized\n") {
		t.Errorf("expected initial recognized event, got %q", recorder.Body.String())
	}
}

func TestServer_APINoStore(t *testing.T) {
	s, _ := newTestServer(t)

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/recognized", nil))

	if got := recorder.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("expected Cache-Control no-store, got %q", got)
	}
}

func TestServer_CORS(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://kiosk.example.com")
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://kiosk.example.com" {
		t.Errorf("expected configured origin allowed, got %q", got)
	}
}

func TestServer_CameraAcquireRoute(t *testing.T) {
	s, cam := newTestServer(t)

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/camera/acquire", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if !cam.running {
		t.Error("expected camera acquired")
	}
}

func TestServer_ViewerPage(t *testing.T) {
	s, _ := newTestServer(t)

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if ct := recorder.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("expected html, got %q", ct)
	}
	if !strings.Contains(recorder.Body.String(), "/video_feed") {
		t.Error("expected the viewer page to embed the video feed")
	}
}

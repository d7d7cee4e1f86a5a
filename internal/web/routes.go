package web

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/facecam/internal/web/handlers"
	"github.com/kozaktomas/facecam/internal/web/middleware"
	"github.com/kozaktomas/facecam/internal/web/static"
)

func (s *Server) setupRoutes() {
	videoHandler := handlers.NewVideoHandler(s.deps.Camera, s.deps.Frames)
	cameraHandler := handlers.NewCameraHandler(s.deps.Camera, s.config.Camera.Device)
	recognizedHandler := handlers.NewRecognizedHandler(s.deps.State)
	galleryHandler := handlers.NewGalleryHandler(s.deps.Gallery)
	configHandler := handlers.NewConfigHandler(s.config)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// Long-lived streams, no request timeout
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.NoStore())
		r.Get("/video_feed", videoHandler.Feed)
		r.Get("/api/v1/recognized/events", recognizedHandler.Events)
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NoStore())
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Get("/recognized", recognizedHandler.Get)

		// Camera ownership
		r.Get("/camera", cameraHandler.Status)
		r.Post("/camera/acquire", cameraHandler.Acquire)
		r.Post("/camera/release", cameraHandler.Release)

		// Gallery
		r.Get("/gallery", galleryHandler.Get)
		r.Post("/gallery/reload", galleryHandler.Reload)

		r.Get("/config", configHandler.Get)
	})

	// Viewer page
	s.router.Get("/*", s.serveStatic)
}

// serveStatic serves the embedded viewer page and its assets.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	if !static.HasDist() {
		http.NotFound(w, r)
		return
	}

	fs := static.GetFileSystem()
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	f, err := fs.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		http.NotFound(w, r)
		return
	}

	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(path, ".html"):
		contentType = "text/html; charset=utf-8"
	case strings.HasSuffix(path, ".css"):
		contentType = "text/css; charset=utf-8"
	case strings.HasSuffix(path, ".js"):
		contentType = "application/javascript; charset=utf-8"
	case strings.HasSuffix(path, ".ico"):
		contentType = "image/x-icon"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}

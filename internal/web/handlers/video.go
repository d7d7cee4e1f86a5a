package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kozaktomas/facecam/internal/stream"
)

// CameraController starts and stops the producer loop over the camera device.
type CameraController interface {
	Acquire() error
	Release() error
	Running() bool
}

// FrameFeed delivers encoded frames to viewers.
type FrameFeed interface {
	AddListener() chan stream.Frame
	RemoveListener(ch chan stream.Frame)
}

// VideoHandler serves the annotated camera stream.
type VideoHandler struct {
	camera CameraController
	frames FrameFeed
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(camera CameraController, frames FrameFeed) *VideoHandler {
	return &VideoHandler{camera: camera, frames: frames}
}

// Feed streams frames as multipart/x-mixed-replace until the client leaves or
// the camera is released. The camera is acquired on first use.
func (h *VideoHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if err := h.camera.Acquire(); err != nil {
		slog.Warn("video feed: camera acquire failed", "error", err)
		respondCameraError(w, err)
		return
	}

	ch := h.frames.AddListener()
	defer h.frames.RemoveListener(ch)

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	mw := stream.NewMultipartWriter(w)
	w.Header().Set("Content-Type", mw.ContentType())
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if err := mw.WriteFrame(frame.Data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

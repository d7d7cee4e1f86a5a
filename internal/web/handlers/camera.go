package handlers

import (
	"log/slog"
	"net/http"
)

// CameraHandler exposes the device acquire/release protocol. Another
// subsystem that needs the camera calls Release first.
type CameraHandler struct {
	camera CameraController
	device string
}

// NewCameraHandler creates a new camera handler
func NewCameraHandler(camera CameraController, device string) *CameraHandler {
	return &CameraHandler{camera: camera, device: device}
}

// CameraStatus is the camera state response.
type CameraStatus struct {
	Device  string `json:"device"`
	Running bool   `json:"running"`
}

// Status reports whether the producer loop holds the device.
func (h *CameraHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, CameraStatus{Device: h.device, Running: h.camera.Running()})
}

// Acquire opens the device and starts the producer loop.
func (h *CameraHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	if err := h.camera.Acquire(); err != nil {
		slog.Warn("camera acquire failed", "device", h.device, "error", err)
		respondCameraError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, CameraStatus{Device: h.device, Running: true})
}

// Release stops the producer loop and frees the device. Releasing a free
// device succeeds.
func (h *CameraHandler) Release(w http.ResponseWriter, r *http.Request) {
	if err := h.camera.Release(); err != nil {
		slog.Warn("camera release failed", "device", h.device, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to release camera")
		return
	}
	respondJSON(w, http.StatusOK, CameraStatus{Device: h.device, Running: false})
}

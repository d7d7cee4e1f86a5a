package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kozaktomas/facecam/internal/camera"
)

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondCameraError maps device acquisition failures to HTTP statuses.
func respondCameraError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, camera.ErrDeviceBusy):
		respondError(w, http.StatusConflict, "camera is in use")
	case errors.Is(err, camera.ErrDeviceUnavailable):
		respondError(w, http.StatusServiceUnavailable, "camera unavailable")
	default:
		respondError(w, http.StatusInternalServerError, "failed to start camera")
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facecam/internal/camera"
)

func TestRespondJSON_SetsStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"Conflict", http.StatusConflict},
		{"BadGateway", http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, nil)

			assertStatusCode(t, recorder, tc.statusCode)
			assertContentType(t, recorder, "application/json")
			if recorder.Body.Len() != 0 {
				t.Errorf("expected empty body for nil data, got %q", recorder.Body.String())
			}
		})
	}
}

func TestRespondJSON_EncodesData(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, map[string]any{"cycle": 42, "running": true})

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["cycle"] != float64(42) {
		t.Errorf("expected cycle 42, got %v", result["cycle"])
	}
	if result["running"] != true {
		t.Errorf("expected running true, got %v", result["running"])
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondError(recorder, http.StatusServiceUnavailable, "camera unavailable")

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	assertJSONError(t, recorder, "camera unavailable")
}

func TestRespondCameraError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"busy", fmt.Errorf("acquiring camera: %w", camera.ErrDeviceBusy), http.StatusConflict, "camera is in use"},
		{"unavailable", fmt.Errorf("%w: no such device", camera.ErrDeviceUnavailable), http.StatusServiceUnavailable, "camera unavailable"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "failed to start camera"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondCameraError(recorder, tc.err)

			assertStatusCode(t, recorder, tc.status)
			assertJSONError(t, recorder, tc.message)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		req := httptest.NewRequest(method, "/health", nil)
		recorder := httptest.NewRecorder()

		HealthCheck(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var result map[string]string
		if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if result["status"] != "ok" {
			t.Errorf("expected status 'ok', got %q", result["status"])
		}
	}
}

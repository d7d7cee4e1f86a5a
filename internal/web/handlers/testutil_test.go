package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kozaktomas/facecam/internal/camera"
)

// fakeCamera is a CameraController with scripted acquire errors.
type fakeCamera struct {
	mu         sync.Mutex
	running    bool
	acquireErr error
	releaseErr error
	acquires   int
	releases   int
}

func (c *fakeCamera) Acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquires++
	if c.acquireErr != nil {
		return c.acquireErr
	}
	c.running = true
	return nil
}

func (c *fakeCamera) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releases++
	if c.releaseErr != nil {
		return c.releaseErr
	}
	c.running = false
	return nil
}

func (c *fakeCamera) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

var _ CameraController = (*fakeCamera)(nil)

// busyCamera fails every acquire with ErrDeviceBusy.
func busyCamera() *fakeCamera {
	return &fakeCamera{acquireErr: camera.ErrDeviceBusy}
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCameraHandler_AcquireAndRelease(t *testing.T) {
	cam := &fakeCamera{}
	handler := NewCameraHandler(cam, "/dev/video0")

	recorder := httptest.NewRecorder()
	handler.Acquire(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/camera/acquire", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var status CameraStatus
	parseJSONResponse(t, recorder, &status)
	if !status.Running || status.Device != "/dev/video0" {
		t.Errorf("expected running on /dev/video0, got %+v", status)
	}

	recorder = httptest.NewRecorder()
	handler.Status(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/camera", nil))
	parseJSONResponse(t, recorder, &status)
	if !status.Running {
		t.Error("expected status to report running")
	}

	for range 2 {
		recorder = httptest.NewRecorder()
		handler.Release(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/camera/release", nil))
		assertStatusCode(t, recorder, http.StatusOK)
	}
	if cam.Running() {
		t.Error("expected camera released")
	}
	if cam.releases != 2 {
		t.Errorf("expected 2 release calls, got %d", cam.releases)
	}
}

func TestCameraHandler_AcquireBusy(t *testing.T) {
	handler := NewCameraHandler(busyCamera(), "/dev/video0")

	recorder := httptest.NewRecorder()
	handler.Acquire(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/camera/acquire", nil))

	assertStatusCode(t, recorder, http.StatusConflict)
	assertJSONError(t, recorder, "camera is in use")
}

func TestCameraHandler_ReleaseError(t *testing.T) {
	handler := NewCameraHandler(&fakeCamera{releaseErr: errors.New("ioctl failed")}, "/dev/video0")

	recorder := httptest.NewRecorder()
	handler.Release(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/camera/release", nil))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to release camera")
}

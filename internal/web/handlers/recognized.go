package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/facecam/internal/facematch"
	"github.com/kozaktomas/facecam/internal/recognition"
)

// RecognizedHandler serves the identities recognized in the latest cycle.
type RecognizedHandler struct {
	state *recognition.State
}

// NewRecognizedHandler creates a new recognized faces handler
func NewRecognizedHandler(state *recognition.State) *RecognizedHandler {
	return &RecognizedHandler{state: state}
}

// RecognizedResponse is the recognized faces payload.
type RecognizedResponse struct {
	Faces []facematch.Result `json:"faces"`
	Cycle uint64             `json:"cycle"`
	At    *time.Time         `json:"at,omitempty"`
}

func newRecognizedResponse(snap *recognition.Snapshot) RecognizedResponse {
	resp := RecognizedResponse{Faces: snap.Faces, Cycle: snap.Cycle}
	if !snap.At.IsZero() {
		at := snap.At
		resp.At = &at
	}
	return resp
}

// Get returns the current recognition snapshot. Before the first cycle it
// returns an empty list.
func (h *RecognizedHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newRecognizedResponse(h.state.Current()))
}

// Events streams a "recognized" event whenever the set of recognized names
// changes, starting with the current snapshot.
func (h *RecognizedHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	ch := h.state.AddListener()
	defer h.state.RemoveListener(ch)

	sendSSEEvent(w, flusher, "recognized", newRecognizedResponse(h.state.Current()))

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "recognized", newRecognizedResponse(snap))
		}
	}
}

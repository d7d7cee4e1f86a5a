package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/kozaktomas/facecam/internal/facematch"
	"github.com/kozaktomas/facecam/internal/gallery"
)

// GalleryHandler reports and reloads the in-memory gallery.
type GalleryHandler struct {
	cache *gallery.Cache
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(cache *gallery.Cache) *GalleryHandler {
	return &GalleryHandler{cache: cache}
}

// GalleryResponse describes the current gallery snapshot.
type GalleryResponse struct {
	SnapshotID string    `json:"snapshot_id"`
	LoadedAt   time.Time `json:"loaded_at"`
	Entries    int       `json:"entries"`
	Identities int       `json:"identities"`
	Indexed    bool      `json:"indexed"`
	Names      []string  `json:"names"`
}

func newGalleryResponse(snap *facematch.Snapshot) GalleryResponse {
	names := make([]string, 0, len(snap.Details))
	for name := range snap.Details {
		names = append(names, name)
	}
	slices.Sort(names)

	return GalleryResponse{
		SnapshotID: snap.ID,
		LoadedAt:   snap.LoadedAt,
		Entries:    snap.Len(),
		Identities: snap.Identities(),
		Indexed:    snap.Indexed(),
		Names:      names,
	}
}

// Get describes the snapshot used for matching.
func (h *GalleryHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newGalleryResponse(h.cache.Snapshot()))
}

// Reload reads the gallery store again and swaps the snapshot. On failure the
// previous snapshot stays in use.
func (h *GalleryHandler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.cache.Load(r.Context())
	if err != nil {
		slog.Error("gallery reload failed", "error", err)
		if errors.Is(err, gallery.ErrLoad) {
			respondError(w, http.StatusBadGateway, "gallery reload failed, previous gallery kept")
			return
		}
		respondError(w, http.StatusInternalServerError, "gallery reload failed")
		return
	}
	respondJSON(w, http.StatusOK, newGalleryResponse(snap))
}

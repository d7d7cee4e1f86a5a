package handlers

import (
	"net/http"

	"github.com/kozaktomas/facecam/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Device        string  `json:"device"`
	Detector      string  `json:"detector"`
	Model         string  `json:"model"`
	Downscale     float64 `json:"downscale"`
	Tolerance     float64 `json:"tolerance"`
	JPEGQuality   int     `json:"jpeg_quality"`
	GallerySource string  `json:"gallery_source"`
	EmbeddingDim  int     `json:"embedding_dim"`
}

// Get returns the pipeline settings in effect
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ConfigResponse{
		Device:        h.config.Camera.Device,
		Detector:      h.config.Detector.Backend,
		Model:         h.config.Detector.Model,
		Downscale:     h.config.Pipeline.Downscale,
		Tolerance:     h.config.Pipeline.Tolerance,
		JPEGQuality:   h.config.Pipeline.JPEGQuality,
		GallerySource: h.config.Gallery.Source,
		EmbeddingDim:  h.config.Gallery.EmbeddingDim,
	})
}

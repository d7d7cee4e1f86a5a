package facedetect

import (
	"fmt"
	"time"

	"github.com/kozaktomas/facecam/internal/config"
)

// New creates the detector selected by cfg.
func New(cfg config.DetectorConfig) (Detector, error) {
	model, err := ParseModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendRemote, "":
		return NewRemote(cfg.URL, model, time.Duration(cfg.Timeout)*time.Second), nil
	case config.BackendDlib:
		d, err := NewDlib(cfg.ModelsDir, model)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Backend)
	}
}

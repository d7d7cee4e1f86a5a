//go:build dlib

package facedetect

import (
	"context"
	"fmt"
	"image"
	"sync"

	face "github.com/Kagami/go-face"
	"github.com/kozaktomas/facecam/internal/facematch"
)

// dlibQuality is the JPEG quality of frames handed to dlib, which only reads JPEG.
const dlibQuality = 95

// Dlib detects faces in process with dlib models loaded from a directory.
type Dlib struct {
	model Model

	mu  sync.Mutex
	rec *face.Recognizer
}

// NewDlib loads the dlib models from modelsDir.
func NewDlib(modelsDir string, model Model) (*Dlib, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("loading dlib models from %s: %w", modelsDir, err)
	}
	if model == "" {
		model = ModelHOG
	}
	return &Dlib{model: model, rec: rec}, nil
}

// Detect runs HOG or CNN detection and computes descriptors.
func (d *Dlib) Detect(ctx context.Context, img image.Image) ([]facematch.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := encodeJPEG(img, dlibQuality)
	if err != nil {
		return nil, err
	}

	// The recognizer is not safe for concurrent use.
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rec == nil {
		return nil, fmt.Errorf("dlib detector is closed")
	}

	var found []face.Face
	if d.model == ModelCNN {
		found, err = d.rec.RecognizeCNN(data)
	} else {
		found, err = d.rec.Recognize(data)
	}
	if err != nil {
		return nil, fmt.Errorf("dlib recognition failed: %w", err)
	}

	faces := make([]facematch.Face, 0, len(found))
	for _, f := range found {
		faces = append(faces, facematch.Face{
			Box:       facematch.BoxFromRect(f.Rectangle),
			Embedding: toFloat64(f.Descriptor[:]),
		})
	}
	return faces, nil
}

// Close frees the dlib models.
func (d *Dlib) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rec != nil {
		d.rec.Close()
		d.rec = nil
	}
	return nil
}

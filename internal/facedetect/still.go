package facedetect

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for still photos
	_ "image/png"
	"os"
)

// EmbedStill returns the embedding of the first face the detector finds in
// img, or ErrNoFace.
func EmbedStill(ctx context.Context, det Detector, img image.Image) ([]float64, error) {
	faces, err := det.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, ErrNoFace
	}
	return faces[0].Embedding, nil
}

// StillEmbedder computes gallery embeddings from photo files at full resolution.
type StillEmbedder struct {
	det Detector
}

// NewStillEmbedder wraps det for still photos.
func NewStillEmbedder(det Detector) *StillEmbedder {
	return &StillEmbedder{det: det}
}

// EmbedFile decodes a photo and embeds its first face.
func (s *StillEmbedder) EmbedFile(ctx context.Context, path string) ([]float64, error) {
	img, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return EmbedStill(ctx, s.det, img)
}

// DecodeFile reads and decodes a JPEG or PNG photo.
func DecodeFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Package facedetect finds faces in images and computes one embedding per face.
// Detection strategies trade speed for accuracy behind a single interface.
package facedetect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/kozaktomas/facecam/internal/facematch"
	"golang.org/x/image/draw"
)

// ErrNoFace is returned when a still photo contains no detectable face.
var ErrNoFace = errors.New("no face found")

// Model selects the detection strategy.
type Model string

const (
	// ModelHOG is the fast, less accurate histogram-of-oriented-gradients detector.
	ModelHOG Model = "hog"
	// ModelCNN is the slow, more accurate convolutional detector.
	ModelCNN Model = "cnn"
)

// ParseModel validates a model name.
func ParseModel(s string) (Model, error) {
	switch Model(s) {
	case ModelHOG, ModelCNN:
		return Model(s), nil
	}
	return "", fmt.Errorf("unknown detection model %q", s)
}

// Detector finds faces in an RGB image. Boxes are in the image's coordinate
// space and faces are returned in detection order. Zero faces is not an error.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]facematch.Face, error)
	Close() error
}

// Downscale resizes img by the linear factor using bilinear interpolation.
// The result is at least 1x1. A factor of 1 returns img unchanged.
func Downscale(img *image.RGBA, factor float64) *image.RGBA {
	if factor <= 0 || factor >= 1 {
		return img
	}
	b := img.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*factor)))
	h := max(1, int(math.Round(float64(b.Dy())*factor)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// encodeJPEG serializes an image for detectors that take compressed input.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

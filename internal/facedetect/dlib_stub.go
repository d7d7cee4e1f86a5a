//go:build !dlib

package facedetect

import (
	"context"
	"errors"
	"image"

	"github.com/kozaktomas/facecam/internal/facematch"
)

var errNoDlib = errors.New("built without dlib support (rebuild with -tags dlib)")

// Dlib is unavailable in this build.
type Dlib struct{}

// NewDlib always fails without the dlib build tag.
func NewDlib(string, Model) (*Dlib, error) {
	return nil, errNoDlib
}

func (*Dlib) Detect(context.Context, image.Image) ([]facematch.Face, error) {
	return nil, errNoDlib
}

func (*Dlib) Close() error {
	return nil
}

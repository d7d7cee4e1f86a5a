// Package stream encodes annotated frames and fans them out to viewers as a
// multipart JPEG stream.
package stream

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/kozaktomas/facecam/internal/constants"
)

// ErrEncode is returned for frames that cannot be encoded. The cycle's output
// frame is dropped; the pipeline keeps running.
var ErrEncode = errors.New("frame encode failed")

// Encoder compresses frames to JPEG.
type Encoder struct {
	quality int
}

// NewEncoder creates an encoder; quality outside [1, 100] selects the default.
func NewEncoder(quality int) *Encoder {
	if quality < 1 || quality > 100 {
		quality = constants.DefaultJPEGQuality
	}
	return &Encoder{quality: quality}
}

// Quality returns the JPEG quality.
func (e *Encoder) Quality() int {
	return e.quality
}

// Encode returns the JPEG bytes of img. The payload length is len of the result.
func (e *Encoder) Encode(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrEncode)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty frame %v", ErrEncode, b)
	}
	if rgba, ok := img.(*image.RGBA); ok && len(rgba.Pix) < rgba.Stride*(b.Dy()-1)+4*b.Dx() {
		return nil, fmt.Errorf("%w: pixel buffer too short for %v", ErrEncode, b)
	}

	var buf bytes.Buffer
	buf.Grow(b.Dx() * b.Dy() / 4)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

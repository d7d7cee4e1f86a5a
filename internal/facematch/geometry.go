package facematch

import (
	"image"
	"math"
)

// BoxFromCorners converts an [x1, y1, x2, y2] pixel bounding box to a Box.
func BoxFromCorners(bbox []float64) (Box, bool) {
	if len(bbox) != 4 {
		return Box{}, false
	}
	return Box{
		Top:    int(math.Round(bbox[1])),
		Right:  int(math.Round(bbox[2])),
		Bottom: int(math.Round(bbox[3])),
		Left:   int(math.Round(bbox[0])),
	}, true
}

// BoxFromRect converts an image rectangle to a Box.
func BoxFromRect(r image.Rectangle) Box {
	return Box{Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Left: r.Min.X}
}

// Upscale maps a box detected on a frame downscaled by factor back to the
// original frame: every coordinate is divided by factor and rounded.
func (b Box) Upscale(factor float64) Box {
	if factor <= 0 || factor == 1 {
		return b
	}
	scale := func(v int) int {
		return int(math.Round(float64(v) / factor))
	}
	return Box{
		Top:    scale(b.Top),
		Right:  scale(b.Right),
		Bottom: scale(b.Bottom),
		Left:   scale(b.Left),
	}
}

// Downscale maps a box on the original frame to a frame scaled by factor.
func (b Box) Downscale(factor float64) Box {
	if factor <= 0 || factor == 1 {
		return b
	}
	scale := func(v int) int {
		return int(math.Round(float64(v) * factor))
	}
	return Box{
		Top:    scale(b.Top),
		Right:  scale(b.Right),
		Bottom: scale(b.Bottom),
		Left:   scale(b.Left),
	}
}

// Clamp normalizes the box (swapping inverted edges) and clips it to bounds.
// It returns false when nothing of the box lies inside bounds.
func (b Box) Clamp(bounds image.Rectangle) (Box, bool) {
	r := b.Rect().Canon().Intersect(bounds)
	if r.Empty() {
		return Box{}, false
	}
	return BoxFromRect(r), true
}

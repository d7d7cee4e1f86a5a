// Package annotate draws recognition results onto full-resolution frames.
package annotate

import (
	"image"
	"image/color"

	"github.com/kozaktomas/facecam/internal/constants"
	"github.com/kozaktomas/facecam/internal/facematch"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	boxColor   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	labelColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Annotate returns a copy of frame with a box and label drawn for every face.
// Boxes are given in the space of a frame downscaled by factor and are mapped
// back before drawing. Boxes partly outside the frame are clipped; boxes fully
// outside are skipped.
func Annotate(frame *image.RGBA, faces []facematch.Labeled, factor float64) *image.RGBA {
	out := image.NewRGBA(frame.Bounds())
	draw.Draw(out, out.Bounds(), frame, frame.Bounds().Min, draw.Src)
	if len(faces) == 0 {
		return out
	}

	green := image.NewUniform(boxColor)
	for _, f := range faces {
		box, ok := f.Box.Upscale(factor).Clamp(out.Bounds())
		if !ok {
			continue
		}
		drawOutline(out, box.Rect(), green)
		drawLabel(out, box, f.Label, green)
	}
	return out
}

// drawOutline strokes r with lines of constants.BoxThickness, inside r.
func drawOutline(dst *image.RGBA, r image.Rectangle, src image.Image) {
	t := constants.BoxThickness
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}

// drawLabel fills the strip along the bottom of the box and writes the label
// into it. Text never leaves the strip.
func drawLabel(dst *image.RGBA, box facematch.Box, label string, fill image.Image) {
	strip := image.Rect(box.Left, box.Bottom-constants.LabelStripHeight, box.Right, box.Bottom).
		Intersect(box.Rect())
	if strip.Empty() {
		return
	}
	draw.Draw(dst, strip, fill, image.Point{}, draw.Src)

	sub, ok := dst.SubImage(strip).(*image.RGBA)
	if !ok {
		return
	}
	d := &font.Drawer{
		Dst:  sub,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(box.Left+constants.LabelInset, box.Bottom-constants.LabelInset),
	}
	d.DrawString(facematch.ASCIILabel(label))
}

package camera

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ToRGBA returns img as an *image.RGBA with origin (0, 0), converting if needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

// YUYVToRGBA converts a packed YUYV 4:2:2 frame (two pixels per four bytes)
// to RGBA using BT.601 coefficients.
func YUYVToRGBA(data []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || width%2 != 0 {
		return nil, fmt.Errorf("invalid YUYV frame size %dx%d", width, height)
	}
	want := width * height * 2
	if len(data) < want {
		return nil, fmt.Errorf("short YUYV frame: %d bytes, want %d", len(data), want)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, p := 0, 0; i < want; i, p = i+4, p+8 {
		y0, u, y1, v := data[i], data[i+1], data[i+2], data[i+3]
		r, g, b := yuvToRGB(y0, u, v)
		img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = r, g, b, 0xff
		r, g, b = yuvToRGB(y1, u, v)
		img.Pix[p+4], img.Pix[p+5], img.Pix[p+6], img.Pix[p+7] = r, g, b, 0xff
	}
	return img, nil
}

func yuvToRGB(y, u, v byte) (byte, byte, byte) {
	c := float64(y)
	d := float64(u) - 128
	e := float64(v) - 128
	return clamp8(c + 1.402*e), clamp8(c - 0.344136*d - 0.714136*e), clamp8(c + 1.772*d)
}

func clamp8(v float64) byte {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return byte(v + 0.5)
}

//go:build linux

package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"github.com/blackjack/webcam"
)

// V4L2 fourcc codes of the pixel formats Device can decode.
const (
	formatMJPEG webcam.PixelFormat = 0x47504A4D // 'MJPG'
	formatYUYV  webcam.PixelFormat = 0x56595559 // 'YUYV'
)

// Device is a V4L2 camera.
type Device struct {
	path    string
	opts    Options
	timeout uint32

	mu     sync.Mutex
	cam    *webcam.Webcam
	format webcam.PixelFormat
	width  int
	height int
}

// NewDevice creates an unopened V4L2 source for path.
func NewDevice(path string, opts Options) *Device {
	// WaitForFrame takes whole seconds.
	timeout := uint32(opts.WaitTimeout / time.Second)
	if timeout == 0 {
		timeout = 1
	}
	return &Device{path: path, opts: opts, timeout: timeout}
}

// Open opens the device and starts streaming, preferring MJPEG over YUYV.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cam != nil {
		return nil
	}

	cam, err := webcam.Open(d.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, d.path, err)
	}

	formats := cam.GetSupportedFormats()
	var format webcam.PixelFormat
	switch {
	case formats[formatMJPEG] != "":
		format = formatMJPEG
	case formats[formatYUYV] != "":
		format = formatYUYV
	default:
		cam.Close()
		return fmt.Errorf("%w: %s supports neither MJPEG nor YUYV", ErrDeviceUnavailable, d.path)
	}

	f, w, h, err := cam.SetImageFormat(format, uint32(d.opts.Width), uint32(d.opts.Height))
	if err != nil {
		cam.Close()
		return fmt.Errorf("%w: setting image format: %w", ErrDeviceUnavailable, err)
	}
	if err := cam.SetBufferCount(2); err != nil {
		slog.Debug("camera buffer count not applied", "device", d.path, "error", err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return fmt.Errorf("%w: starting stream: %w", ErrDeviceUnavailable, err)
	}

	d.cam = cam
	d.format = f
	d.width = int(w)
	d.height = int(h)
	slog.Info("camera opened", "device", d.path, "format", formats[f], "width", w, "height", h)
	return nil
}

// ReadFrame waits for the next frame and decodes it to RGBA.
func (d *Device) ReadFrame(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cam == nil {
		return nil, fmt.Errorf("%w: device %s is not open", ErrFrameRead, d.path)
	}

	if err := d.cam.WaitForFrame(d.timeout); err != nil {
		var timeout *webcam.Timeout
		if errors.As(err, &timeout) {
			return nil, fmt.Errorf("%w: timed out waiting for frame", ErrFrameRead)
		}
		return nil, fmt.Errorf("%w: %w", ErrFrameRead, err)
	}

	raw, index, err := d.cam.GetFrame()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFrameRead, err)
	}
	defer d.cam.ReleaseFrame(index)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrFrameRead)
	}

	// raw points into a driver buffer that is reused after ReleaseFrame.
	switch d.format {
	case formatMJPEG:
		img, err := jpeg.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding MJPEG: %w", ErrFrameRead, err)
		}
		return ToRGBA(img), nil
	default:
		img, err := YUYVToRGBA(raw, d.width, d.height)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFrameRead, err)
		}
		return img, nil
	}
}

// Close stops streaming and closes the device handle.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cam == nil {
		return nil
	}
	if err := d.cam.StopStreaming(); err != nil {
		slog.Warn("failed to stop camera stream", "device", d.path, "error", err)
	}
	err := d.cam.Close()
	d.cam = nil
	slog.Info("camera released", "device", d.path)
	if err != nil {
		return fmt.Errorf("closing %s: %w", d.path, err)
	}
	return nil
}

// Package camera provides frame sources for the recognition pipeline and a
// registry that keeps at most one open handle per device.
package camera

import (
	"context"
	"errors"
	"image"
	"os"
	"time"
)

var (
	// ErrDeviceUnavailable is returned when a device cannot be opened.
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	// ErrDeviceBusy is returned when a device is already held by another owner.
	ErrDeviceBusy = errors.New("camera device busy")
	// ErrFrameRead marks a transient read failure. The caller should skip the
	// cycle and read again.
	ErrFrameRead = errors.New("frame read failed")
)

// Source produces raw frames from a camera-like device.
type Source interface {
	// Open acquires the device. It fails with ErrDeviceUnavailable.
	Open() error
	// ReadFrame blocks until the next frame is available. Transient failures
	// wrap ErrFrameRead.
	ReadFrame(ctx context.Context) (*image.RGBA, error)
	// Close releases the device. It is safe to call more than once and on a
	// source that was never opened.
	Close() error
}

// Options configures sources created by NewSource.
type Options struct {
	Width       int
	Height      int
	WaitTimeout time.Duration
	// Interval paces replayed frames; zero replays as fast as they are read.
	Interval time.Duration
}

// NewSource returns a Directory source when device is a directory and a V4L2
// Device otherwise. The source is not opened.
func NewSource(device string, opts Options) Source {
	if info, err := os.Stat(device); err == nil && info.IsDir() {
		return NewDirectory(device, opts.Interval)
	}
	return NewDevice(device, opts)
}

//go:build !linux

package camera

import (
	"context"
	"fmt"
	"image"
)

// Device is a V4L2 camera. V4L2 exists only on Linux; elsewhere Open always
// fails and a Directory source should be used instead.
type Device struct {
	path string
}

// NewDevice creates an unopened device source for path.
func NewDevice(path string, _ Options) *Device {
	return &Device{path: path}
}

func (d *Device) Open() error {
	return fmt.Errorf("%w: %s: V4L2 capture requires linux", ErrDeviceUnavailable, d.path)
}

func (d *Device) ReadFrame(context.Context) (*image.RGBA, error) {
	return nil, fmt.Errorf("%w: device %s is not open", ErrFrameRead, d.path)
}

func (d *Device) Close() error {
	return nil
}

package camera

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// Factory creates an unopened source for a device path.
type Factory func(device string) Source

// Registry hands out at most one open handle per device. A second Acquire of
// a held device fails with ErrDeviceBusy instead of opening it again.
type Registry struct {
	factory Factory

	mu   sync.Mutex
	held map[string]*Handle
}

// NewRegistry creates a registry that opens devices with factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		held:    make(map[string]*Handle),
	}
}

// Acquire opens device and returns the handle owning it.
func (r *Registry) Acquire(device string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.held[device]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceBusy, device)
	}

	src := r.factory(device)
	if err := src.Open(); err != nil {
		// Leave nothing half open behind.
		src.Close()
		return nil, err
	}

	h := &Handle{device: device, source: src, registry: r}
	r.held[device] = h
	return h, nil
}

// Release releases the handle holding device, if any. It is idempotent.
func (r *Registry) Release(device string) error {
	r.mu.Lock()
	h := r.held[device]
	r.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Release()
}

// Held reports whether device is currently acquired.
func (r *Registry) Held(device string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.held[device]
	return ok
}

// ReleaseAll releases every held device.
func (r *Registry) ReleaseAll() error {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.held))
	for _, h := range r.held {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	var firstErr error
	for _, h := range handles {
		if err := h.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Registry) forget(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.held[h.device] == h {
		delete(r.held, h.device)
	}
}

// Handle is exclusive ownership of an open device.
type Handle struct {
	device   string
	source   Source
	registry *Registry

	once sync.Once
	err  error
}

// Device returns the device path.
func (h *Handle) Device() string {
	return h.device
}

// ReadFrame reads the next frame from the device.
func (h *Handle) ReadFrame(ctx context.Context) (*image.RGBA, error) {
	return h.source.ReadFrame(ctx)
}

// Release closes the device and frees it for the next Acquire. Only the first
// call closes; later calls return the same result.
func (h *Handle) Release() error {
	h.once.Do(func() {
		h.err = h.source.Close()
		h.registry.forget(h)
	})
	return h.err
}

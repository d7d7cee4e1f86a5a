// Package mock provides a scripted camera source for testing.
package mock

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/kozaktomas/facecam/internal/camera"
)

// Step is one scripted ReadFrame outcome: a frame, or a transient failure
// when Frame is nil.
type Step struct {
	Frame *image.RGBA
}

// MockSource replays scripted frames. After the script runs out it repeats
// the last step.
type MockSource struct {
	mu     sync.Mutex
	steps  []Step
	next   int
	isOpen bool

	// Error injection
	OpenError error

	// Call counters
	OpenCalls  int
	CloseCalls int
	ReadCalls  int
}

// NewMockSource creates a source that plays steps in order.
func NewMockSource(steps ...Step) *MockSource {
	return &MockSource{steps: steps}
}

// Frames builds one successful step per frame.
func Frames(frames ...*image.RGBA) []Step {
	steps := make([]Step, len(frames))
	for i, f := range frames {
		steps[i] = Step{Frame: f}
	}
	return steps
}

// Push appends steps to the script.
func (m *MockSource) Push(steps ...Step) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, steps...)
}

func (m *MockSource) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenCalls++
	if m.OpenError != nil {
		return fmt.Errorf("%w: %w", camera.ErrDeviceUnavailable, m.OpenError)
	}
	m.isOpen = true
	return nil
}

func (m *MockSource) ReadFrame(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadCalls++

	if !m.isOpen {
		return nil, fmt.Errorf("%w: not open", camera.ErrFrameRead)
	}
	if len(m.steps) == 0 {
		return nil, fmt.Errorf("%w: no frames scripted", camera.ErrFrameRead)
	}

	i := min(m.next, len(m.steps)-1)
	m.next++
	if m.steps[i].Frame == nil {
		return nil, fmt.Errorf("%w: scripted failure", camera.ErrFrameRead)
	}
	return m.steps[i].Frame, nil
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	m.isOpen = false
	return nil
}

// IsOpen reports whether the source is open.
func (m *MockSource) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isOpen
}

// Factory returns a camera.Factory that always hands out m.
func (m *MockSource) Factory() camera.Factory {
	return func(string) camera.Source { return m }
}

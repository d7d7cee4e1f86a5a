// Package pipeline drives the capture, detect, match, annotate and encode
// cycle over an acquired camera device.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/facecam/internal/annotate"
	"github.com/kozaktomas/facecam/internal/camera"
	"github.com/kozaktomas/facecam/internal/constants"
	"github.com/kozaktomas/facecam/internal/facedetect"
	"github.com/kozaktomas/facecam/internal/facematch"
	"github.com/kozaktomas/facecam/internal/recognition"
	"github.com/kozaktomas/facecam/internal/stream"
)

var (
	// ErrNotStarted is returned by Step when no device is acquired.
	ErrNotStarted = errors.New("pipeline not started")
	// ErrDetect wraps detector failures of a single cycle.
	ErrDetect = errors.New("face detection failed")
)

// GallerySource provides the gallery snapshot used for matching.
type GallerySource interface {
	Snapshot() *facematch.Snapshot
}

// FrameEncoder turns an annotated frame into the bytes streamed to viewers.
// Failures wrap stream.ErrEncode.
type FrameEncoder interface {
	Encode(img image.Image) ([]byte, error)
}

// Deps are the collaborators of a pipeline.
type Deps struct {
	Cameras  *camera.Registry
	Detector facedetect.Detector
	Gallery  GallerySource
	State    *recognition.State
	Encoder  FrameEncoder
	Logger   *slog.Logger
}

// Options tune a pipeline.
type Options struct {
	// Device is the camera device path acquired by Start.
	Device string
	// Downscale is the linear factor applied before detection.
	Downscale float64
	// Tolerance is the maximum Euclidean distance of a match.
	Tolerance float64
	// RetryDelay is the pause after a failed cycle.
	RetryDelay time.Duration
}

// Frame is the output of one completed cycle.
type Frame struct {
	Seq uint64
	At  time.Time
	// JPEG is the encoded annotated frame.
	JPEG []byte
	// Image is the annotated full-resolution frame.
	Image *image.RGBA
	// Labels holds one entry per detected face, boxes in downscaled space.
	Labels []facematch.Labeled
	// Results holds the recognized identities, in detection order.
	Results []facematch.Result
}

// Pipeline runs recognition cycles. It owns at most one camera handle.
type Pipeline struct {
	deps    Deps
	opts    Options
	matcher *facematch.Matcher
	logger  *slog.Logger

	mu     sync.Mutex
	handle *camera.Handle
	seq    atomic.Uint64
}

// New creates a pipeline. No device is acquired until Start.
func New(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Cameras == nil:
		return nil, errors.New("pipeline: camera registry is required")
	case deps.Detector == nil:
		return nil, errors.New("pipeline: detector is required")
	case deps.Gallery == nil:
		return nil, errors.New("pipeline: gallery is required")
	}
	if deps.State == nil {
		deps.State = recognition.NewState()
	}
	if deps.Encoder == nil {
		deps.Encoder = stream.NewEncoder(constants.DefaultJPEGQuality)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Downscale <= 0 || opts.Downscale > 1 {
		opts.Downscale = constants.DefaultDownscale
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}

	return &Pipeline{
		deps:    deps,
		opts:    opts,
		matcher: facematch.NewMatcher(opts.Tolerance),
		logger:  deps.Logger,
	}, nil
}

// State returns the recognition state updated by every cycle.
func (p *Pipeline) State() *recognition.State {
	return p.deps.State
}

// Device returns the configured device path.
func (p *Pipeline) Device() string {
	return p.opts.Device
}

// Start acquires the camera device. Starting a pipeline that already holds
// the device is a no-op. It fails with camera.ErrDeviceUnavailable or
// camera.ErrDeviceBusy.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != nil {
		return nil
	}
	h, err := p.deps.Cameras.Acquire(p.opts.Device)
	if err != nil {
		return fmt.Errorf("acquiring camera: %w", err)
	}
	p.handle = h
	p.logger.Info("pipeline started", "device", p.opts.Device)
	return nil
}

// Release frees the camera device. It is safe to call at any time and any
// number of times.
func (p *Pipeline) Release() error {
	p.mu.Lock()
	h := p.handle
	p.handle = nil
	p.mu.Unlock()

	if h == nil {
		return nil
	}
	p.logger.Info("pipeline released", "device", p.opts.Device)
	return h.Release()
}

// releaseIf releases h only while it is still the pipeline's handle.
func (p *Pipeline) releaseIf(h *camera.Handle) {
	p.mu.Lock()
	if p.handle != h || h == nil {
		p.mu.Unlock()
		return
	}
	p.handle = nil
	p.mu.Unlock()

	if err := h.Release(); err != nil {
		p.logger.Warn("failed to release camera", "device", p.opts.Device, "error", err)
	}
}

// Active reports whether the pipeline holds the device.
func (p *Pipeline) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != nil
}

func (p *Pipeline) currentHandle() *camera.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

// Step runs one cycle. A failed frame read or detection leaves the
// recognition state untouched. An encode failure happens after the state was
// updated and only drops the output frame.
func (p *Pipeline) Step(ctx context.Context) (Frame, error) {
	h := p.currentHandle()
	if h == nil {
		return Frame{}, ErrNotStarted
	}

	raw, err := h.ReadFrame(ctx)
	if err != nil {
		return Frame{}, err
	}

	small := facedetect.Downscale(raw, p.opts.Downscale)
	faces, err := p.deps.Detector.Detect(ctx, small)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrDetect, err)
	}

	labels, results := p.matcher.Recognize(faces, p.deps.Gallery.Snapshot())
	p.deps.State.Replace(results)

	annotated := annotate.Annotate(raw, labels, p.opts.Downscale)
	frame := Frame{
		Seq:     p.seq.Add(1),
		At:      time.Now(),
		Image:   annotated,
		Labels:  labels,
		Results: results,
	}

	data, err := p.deps.Encoder.Encode(annotated)
	if err != nil {
		return frame, err
	}
	frame.JPEG = data
	return frame, nil
}

// Frames returns the lazy, unbounded sequence of output frames. Failed cycles
// are logged and skipped. The sequence ends when ctx is done, the device is
// released or the consumer stops. It can be iterated only once.
func (p *Pipeline) Frames(ctx context.Context) iter.Seq[Frame] {
	var used atomic.Bool
	return func(yield func(Frame) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}

		for ctx.Err() == nil {
			frame, err := p.Step(ctx)
			if err != nil {
				if errors.Is(err, ErrNotStarted) || ctx.Err() != nil {
					return
				}
				p.logCycleError(err)
				if !sleep(ctx, p.opts.RetryDelay) {
					return
				}
				continue
			}
			if !yield(frame) {
				return
			}
		}
	}
}

// Run acquires the device, passes every frame to sink and releases the device
// when the sequence ends, whatever the reason.
func (p *Pipeline) Run(ctx context.Context, sink func(Frame)) error {
	if err := p.Start(); err != nil {
		return err
	}
	h := p.currentHandle()
	defer p.releaseIf(h)

	for frame := range p.Frames(ctx) {
		sink(frame)
	}
	return nil
}

func (p *Pipeline) logCycleError(err error) {
	switch {
	case errors.Is(err, camera.ErrFrameRead):
		p.logger.Warn("skipping cycle: frame read failed", "error", err)
	case errors.Is(err, stream.ErrEncode):
		p.logger.Warn("dropping output frame", "error", err)
	default:
		p.logger.Warn("cycle failed", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

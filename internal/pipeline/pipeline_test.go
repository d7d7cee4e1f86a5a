package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/facecam/internal/camera"
	"github.com/kozaktomas/facecam/internal/camera/mock"
	dbmock "github.com/kozaktomas/facecam/internal/database/mock"
	"github.com/kozaktomas/facecam/internal/facematch"
	"github.com/kozaktomas/facecam/internal/gallery"
	"github.com/kozaktomas/facecam/internal/recognition"
	"github.com/kozaktomas/facecam/internal/stream"
)

const testDevice = "/dev/video-test"

var alice = []float64{1, 0, 0, 0}

// stubDetector returns the same faces for every frame and records frame sizes.
type stubDetector struct {
	mu    sync.Mutex
	faces []facematch.Face
	err   error
	sizes []image.Rectangle
}

func (d *stubDetector) Detect(ctx context.Context, img image.Image) ([]facematch.Face, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sizes = append(d.sizes, img.Bounds())
	return d.faces, d.err
}

func (d *stubDetector) Close() error { return nil }

func (d *stubDetector) set(faces []facematch.Face, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faces, d.err = faces, err
}

func testFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 160, 120))
	for i := range img.Pix {
		img.Pix[i] = 0x30
	}
	return img
}

// scriptedEncoder encodes with the stream encoder but fails the calls listed in fail (1-based).
type scriptedEncoder struct {
	mu    sync.Mutex
	jpeg  *stream.Encoder
	fail  map[int]bool
	calls int
}

func (e *scriptedEncoder) Encode(img image.Image) ([]byte, error) {
	e.mu.Lock()
	e.calls++
	failing := e.fail[e.calls]
	e.mu.Unlock()
	if failing {
		return nil, fmt.Errorf("%w: out of memory", stream.ErrEncode)
	}
	return e.jpeg.Encode(img)
}

func (e *scriptedEncoder) failOn(calls ...int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range calls {
		e.fail[c] = true
	}
}

type fixture struct {
	source   *mock.MockSource
	detector *stubDetector
	encoder  *scriptedEncoder
	state    *recognition.State
	cameras  *camera.Registry
	pipeline *Pipeline
}

func newFixture(t *testing.T, steps ...mock.Step) *fixture {
	t.Helper()

	store := dbmock.NewMockGalleryStore()
	store.AddEmbedding("Alice", alice)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := gallery.NewCache(store, gallery.Options{EmbeddingDim: 4, Logger: logger})
	if _, err := cache.Load(context.Background()); err != nil {
		t.Fatalf("loading gallery: %v", err)
	}

	src := mock.NewMockSource(steps...)
	f := &fixture{
		source:   src,
		detector: &stubDetector{},
		encoder:  &scriptedEncoder{jpeg: stream.NewEncoder(95), fail: map[int]bool{}},
		state:    recognition.NewState(),
		cameras:  camera.NewRegistry(src.Factory()),
	}
	p, err := New(Deps{
		Cameras:  f.cameras,
		Detector: f.detector,
		Gallery:  cache,
		State:    f.state,
		Encoder:  f.encoder,
		Logger:   logger,
	}, Options{Device: testDevice, Downscale: 0.25, Tolerance: 0.6, RetryDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("creating pipeline: %v", err)
	}
	f.pipeline = p
	return f
}

// faceAt returns a face whose embedding is at distance d from alice.
func faceAt(d float64) facematch.Face {
	return facematch.Face{
		Box:       facematch.Box{Top: 2, Right: 30, Bottom: 28, Left: 5},
		Embedding: []float64{1 + d, 0, 0, 0},
	}
}

func TestStep_KnownFace(t *testing.T) {
	f := newFixture(t, mock.Frames(testFrame())...)
	f.detector.set([]facematch.Face{faceAt(0.3)}, nil)
	if err := f.pipeline.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer f.pipeline.Release()

	frame, err := f.pipeline.Step(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	faces := f.state.Faces()
	if len(faces) != 1 || faces[0].Name != "Alice" || faces[0].Time != "Now" {
		t.Errorf("expected [Alice], got %+v", faces)
	}
	if len(frame.Labels) != 1 || frame.Labels[0].Label != "Alice" {
		t.Errorf("expected one Alice label, got %+v", frame.Labels)
	}
	if len(frame.JPEG) == 0 {
		t.Error("expected encoded frame")
	}
	if f.detector.sizes[0] != image.Rect(0, 0, 40, 30) {
		t.Errorf("expected detection on 40x30 frame, got %v", f.detector.sizes[0])
	}
	// Box left edge scaled back by 1/0.25: 5 -> 20.
	if got := frame.Image.RGBAAt(20, 50); got != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("expected box drawn at full resolution, got %v", got)
	}
}

func TestStep_UnknownFace(t *testing.T) {
	f := newFixture(t, mock.Frames(testFrame())...)
	f.detector.set([]facematch.Face{faceAt(0.9)}, nil)
	f.pipeline.Start()
	defer f.pipeline.Release()

	frame, err := f.pipeline.Step(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if faces := f.state.Faces(); len(faces) != 0 {
		t.Errorf("expected no recognized faces, got %+v", faces)
	}
	if len(frame.Labels) != 1 || frame.Labels[0].Label != "Unknown" {
		t.Errorf("expected one Unknown label, got %+v", frame.Labels)
	}
}

func TestStep_FrameReadFailureKeepsState(t *testing.T) {
	f := newFixture(t, mock.Step{Frame: testFrame()}, mock.Step{})
	f.detector.set([]facematch.Face{faceAt(0.3)}, nil)
	f.pipeline.Start()
	defer f.pipeline.Release()

	if _, err := f.pipeline.Step(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	before := f.state.Current()

	frame, err := f.pipeline.Step(context.Background())
	if !errors.Is(err, camera.ErrFrameRead) {
		t.Fatalf("expected ErrFrameRead, got %v", err)
	}
	if frame.JPEG != nil {
		t.Error("expected no output frame")
	}
	if f.state.Current() != before {
		t.Error("expected recognition state unchanged")
	}
}

func TestStep_DetectorFailureKeepsState(t *testing.T) {
	f := newFixture(t, mock.Frames(testFrame())...)
	f.detector.set(nil, errors.New("service down"))
	f.pipeline.Start()
	defer f.pipeline.Release()

	before := f.state.Current()
	if _, err := f.pipeline.Step(context.Background()); !errors.Is(err, ErrDetect) {
		t.Fatalf("expected ErrDetect, got %v", err)
	}
	if f.state.Current() != before {
		t.Error("expected recognition state unchanged")
	}
}

func TestStep_EncodeFailureDropsFrameKeepsState(t *testing.T) {
	f := newFixture(t, mock.Frames(testFrame())...)
	f.detector.set([]facematch.Face{faceAt(0.2)}, nil)
	f.encoder.failOn(1)
	f.pipeline.Start()
	defer f.pipeline.Release()

	before := f.state.Current()
	frame, err := f.pipeline.Step(context.Background())
	if !errors.Is(err, stream.ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
	if frame.JPEG != nil {
		t.Error("expected the output frame to be dropped")
	}
	after := f.state.Current()
	if after == before || after.Cycle != before.Cycle+1 {
		t.Errorf("expected recognition state replaced, cycle %d -> %d", before.Cycle, after.Cycle)
	}
	if faces := f.state.Faces(); len(faces) != 1 || faces[0].Name != "Alice" {
		t.Errorf("expected [Alice] despite encode failure, got %+v", faces)
	}

	if _, err := f.pipeline.Step(context.Background()); err != nil {
		t.Errorf("expected next cycle to encode, got %v", err)
	}
}

func TestStep_NotStarted(t *testing.T) {
	f := newFixture(t, mock.Frames(testFrame())...)
	if _, err := f.pipeline.Step(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestRelease_TwiceThenAcquire(t *testing.T) {
	f := newFixture(t, mock.Frames(testFrame())...)

	if err := f.pipeline.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.pipeline.Release(); err != nil {
		t.Errorf("first release: %v", err)
	}
	if err := f.pipeline.Release(); err != nil {
		t.Errorf("second release: %v", err)
	}
	if f.cameras.Held(testDevice) {
		t.Error("expected device to be free")
	}

	if err := f.pipeline.Start(); err != nil {
		t.Fatalf("fresh start: %v", err)
	}
	defer f.pipeline.Release()
	if _, err := f.pipeline.Step(context.Background()); err != nil {
		t.Errorf("expected cycle after re-acquire, got %v", err)
	}
	if f.source.CloseCalls != 1 {
		t.Errorf("expected one device close, got %d", f.source.CloseCalls)
	}
}

func TestStart_Idempotent(t *testing.T) {
	f := newFixture(t, mock.Frames(testFrame())...)
	f.pipeline.Start()
	defer f.pipeline.Release()

	if err := f.pipeline.Start(); err != nil {
		t.Errorf("expected second start to be a no-op, got %v", err)
	}
	if f.source.OpenCalls != 1 {
		t.Errorf("expected one open, got %d", f.source.OpenCalls)
	}
}

func TestStart_DeviceHeldElsewhere(t *testing.T) {
	f := newFixture(t, mock.Frames(testFrame())...)
	other, err := f.cameras.Acquire(testDevice)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Release()

	if err := f.pipeline.Start(); !errors.Is(err, camera.ErrDeviceBusy) {
		t.Errorf("expected ErrDeviceBusy, got %v", err)
	}
}

func TestStart_DeviceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.source.OpenError = errors.New("no such device")

	if err := f.pipeline.Start(); !errors.Is(err, camera.ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
	if f.pipeline.Active() {
		t.Error("expected pipeline inactive")
	}
}

func TestFrames_SkipsFailedCyclesAndIsNotRestartable(t *testing.T) {
	f := newFixture(t,
		mock.Step{Frame: testFrame()},
		mock.Step{},
		mock.Step{Frame: testFrame()},
	)
	f.pipeline.Start()
	defer f.pipeline.Release()

	seq := f.pipeline.Frames(context.Background())
	var got []uint64
	for frame := range seq {
		got = append(got, frame.Seq)
		if len(got) == 3 {
			break
		}
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("expected seqs 1..3, got %v", got)
	}
	// 3 frames plus one failed read.
	if f.source.ReadCalls != 4 {
		t.Errorf("expected 4 reads, got %d", f.source.ReadCalls)
	}

	for range seq {
		t.Fatal("expected exhausted sequence to yield nothing")
	}
}

func TestFrames_ContinuesAfterEncodeFailure(t *testing.T) {
	f := newFixture(t, mock.Frames(testFrame())...)
	f.detector.set([]facematch.Face{faceAt(0.2)}, nil)
	f.encoder.failOn(2)
	f.pipeline.Start()
	defer f.pipeline.Release()

	var got []uint64
	for frame := range f.pipeline.Frames(context.Background()) {
		if len(frame.JPEG) == 0 {
			t.Errorf("frame %d yielded without JPEG", frame.Seq)
		}
		got = append(got, frame.Seq)
		if len(got) == 2 {
			break
		}
	}
	// Cycle 2 updated the state but its frame was dropped.
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("expected seqs [1 3], got %v", got)
	}
	if cycle := f.state.Current().Cycle; cycle != 3 {
		t.Errorf("expected 3 state replacements, got %d", cycle)
	}
}

func TestFrames_EndsOnRelease(t *testing.T) {
	f := newFixture(t, mock.Frames(testFrame())...)
	f.pipeline.Start()

	n := 0
	for range f.pipeline.Frames(context.Background()) {
		n++
		if n == 2 {
			f.pipeline.Release()
		}
		if n > 10 {
			t.Fatal("expected sequence to end after release")
		}
	}
	if n != 2 {
		t.Errorf("expected 2 frames, got %d", n)
	}
}

func TestRun_ReleasesOnCancel(t *testing.T) {
	f := newFixture(t, mock.Frames(testFrame())...)
	ctx, cancel := context.WithCancel(context.Background())

	n := 0
	err := f.pipeline.Run(ctx, func(Frame) {
		n++
		if n == 3 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.cameras.Held(testDevice) {
		t.Error("expected device released after Run")
	}
	if f.source.IsOpen() {
		t.Error("expected source closed after Run")
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}, Options{}); err == nil {
		t.Error("expected error for missing deps")
	}
}

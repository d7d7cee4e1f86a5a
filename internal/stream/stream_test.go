package stream

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"strconv"
	"testing"
)

func TestEncoder_Encode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}

	data, err := NewEncoder(95).Encode(img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatal("expected JPEG SOI marker")
	}

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if decoded.Bounds().Dx() != 32 || decoded.Bounds().Dy() != 24 {
		t.Errorf("unexpected decoded size %v", decoded.Bounds())
	}
}

func TestEncoder_CorruptFrames(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"nil", nil},
		{"empty bounds", image.NewRGBA(image.Rectangle{})},
		{"short pixel buffer", &image.RGBA{Pix: make([]uint8, 10), Stride: 40, Rect: image.Rect(0, 0, 10, 10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEncoder(95).Encode(tt.img); !errors.Is(err, ErrEncode) {
				t.Errorf("expected ErrEncode, got %v", err)
			}
		})
	}
}

func TestNewEncoder_DefaultQuality(t *testing.T) {
	if q := NewEncoder(0).Quality(); q != 95 {
		t.Errorf("expected default quality 95, got %d", q)
	}
	if q := NewEncoder(101).Quality(); q != 95 {
		t.Errorf("expected default quality 95, got %d", q)
	}
	if q := NewEncoder(70).Quality(); q != 70 {
		t.Errorf("expected quality 70, got %d", q)
	}
}

func TestMultipartWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewMultipartWriter(&buf)

	if ct := w.ContentType(); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("unexpected content type %q", ct)
	}

	frames := [][]byte{[]byte("first-jpeg"), []byte("second")}
	for _, f := range frames {
		if err := w.WriteFrame(f); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("--frame\r\n")) {
		t.Errorf("expected stream to start with boundary, got %q", buf.String()[:20])
	}
	w.Close()

	_, params, err := mime.ParseMediaType(w.ContentType())
	if err != nil {
		t.Fatal(err)
	}
	r := multipart.NewReader(&buf, params["boundary"])
	for i, want := range frames {
		part, err := r.NextPart()
		if err != nil {
			t.Fatalf("part %d: %v", i, err)
		}
		if ct := part.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("part %d: expected image/jpeg, got %q", i, ct)
		}
		if cl := part.Header.Get("Content-Length"); cl != strconv.Itoa(len(want)) {
			t.Errorf("part %d: expected length %d, got %s", i, len(want), cl)
		}
		got, _ := io.ReadAll(part)
		if !bytes.Equal(got, want) {
			t.Errorf("part %d: expected %q, got %q", i, want, got)
		}
	}
	if _, err := r.NextPart(); err != io.EOF {
		t.Errorf("expected EOF after last part, got %v", err)
	}
}

func TestBroadcaster_FanOut(t *testing.T) {
	b := NewBroadcaster()
	a := b.AddListener()
	c := b.AddListener()

	b.Publish(Frame{Seq: 1})

	if f := <-a; f.Seq != 1 {
		t.Errorf("listener a: expected seq 1, got %d", f.Seq)
	}
	if f := <-c; f.Seq != 1 {
		t.Errorf("listener c: expected seq 1, got %d", f.Seq)
	}
}

func TestBroadcaster_SlowViewerKeepsLatest(t *testing.T) {
	b := NewBroadcaster()
	ch := b.AddListener()

	for seq := uint64(1); seq <= 10; seq++ {
		b.Publish(Frame{Seq: seq})
	}

	var got []uint64
	for len(ch) > 0 {
		got = append(got, (<-ch).Seq)
	}
	if len(got) == 0 || got[len(got)-1] != 10 {
		t.Errorf("expected latest frame to be queued, got %v", got)
	}
	if len(got) > cap(ch) {
		t.Errorf("expected at most %d queued frames, got %d", cap(ch), len(got))
	}
}

func TestBroadcaster_RemoveAndClose(t *testing.T) {
	b := NewBroadcaster()
	a := b.AddListener()
	c := b.AddListener()

	b.RemoveListener(a)
	if _, ok := <-a; ok {
		t.Error("expected removed listener channel to be closed")
	}
	if b.Listeners() != 1 {
		t.Errorf("expected 1 listener, got %d", b.Listeners())
	}
	b.RemoveListener(a)

	b.Close()
	if _, ok := <-c; ok {
		t.Error("expected channel closed by Close")
	}
	late := b.AddListener()
	if _, ok := <-late; ok {
		t.Error("expected listener added after Close to be closed")
	}
	b.Publish(Frame{Seq: 1})
}

func TestBroadcaster_Disconnect(t *testing.T) {
	b := NewBroadcaster()
	a := b.AddListener()

	b.Disconnect()
	if _, ok := <-a; ok {
		t.Error("expected channel closed by Disconnect")
	}
	if b.Listeners() != 0 {
		t.Errorf("expected no listeners, got %d", b.Listeners())
	}
	// The viewer's own cleanup must not close twice.
	b.RemoveListener(a)

	next := b.AddListener()
	b.Publish(Frame{Seq: 2})
	if f, ok := <-next; !ok || f.Seq != 2 {
		t.Errorf("expected listener after Disconnect to receive seq 2, got %d (open %v)", f.Seq, ok)
	}
}

func TestFrameColor(t *testing.T) {
	// A uniform frame survives encoding within JPEG tolerance.
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	c := color.RGBA{0, 200, 0, 255}
	for y := range 16 {
		for x := range 16 {
			img.SetRGBA(x, y, c)
		}
	}
	data, err := NewEncoder(95).Encode(img)
	if err != nil {
		t.Fatal(err)
	}
	decoded, _ := jpeg.Decode(bytes.NewReader(data))
	_, g, _, _ := decoded.At(8, 8).RGBA()
	if diff := int(g>>8) - 200; diff < -8 || diff > 8 {
		t.Errorf("expected green near 200, got %d", g>>8)
	}
}

package gallery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/kozaktomas/facecam/internal/database"
	"github.com/kozaktomas/facecam/internal/database/mock"
	"github.com/kozaktomas/facecam/internal/facematch"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func vec(dim int, v float64) []float64 {
	out := make([]float64, dim)
	out[0] = v
	return out
}

func newTestCache(store database.GalleryReader) *Cache {
	return NewCache(store, Options{EmbeddingDim: 4, Logger: quietLogger()})
}

func TestCache_StartsEmpty(t *testing.T) {
	c := newTestCache(mock.NewMockGalleryStore())

	snap := c.Snapshot()
	if snap == nil {
		t.Fatal("expected non-nil snapshot before first load")
	}
	if snap.Len() != 0 {
		t.Errorf("expected empty snapshot, got %d entries", snap.Len())
	}
}

func TestCache_Load(t *testing.T) {
	store := mock.NewMockGalleryStore()
	store.AddEmbedding("Alice", vec(4, 1))
	store.AddEmbedding("Bob", vec(4, 2))
	store.AddEmbedding("Alice", vec(4, 3))
	age := 41
	store.SetPersonAttributes("Bob", "3.B", &age, "Physics")

	c := newTestCache(store)
	snap, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", snap.Len())
	}
	if snap.Identities() != 2 {
		t.Errorf("expected 2 identities, got %d", snap.Identities())
	}
	if snap.ID == "" {
		t.Error("expected snapshot ID to be set")
	}
	wantNames := []string{"Alice", "Bob", "Alice"}
	for i, name := range wantNames {
		if snap.Names[i] != name {
			t.Errorf("names[%d]: expected %s, got %s", i, name, snap.Names[i])
		}
	}
	bob := snap.Details["Bob"]
	if bob.ClassName != "3.B" || bob.Department != "Physics" || bob.Age == nil || *bob.Age != 41 {
		t.Errorf("unexpected Bob details: %+v", bob)
	}
	if c.Snapshot() != snap {
		t.Error("expected loaded snapshot to be published")
	}
}

func TestCache_SkipsMissingAndMalformed(t *testing.T) {
	store := mock.NewMockGalleryStore()
	store.AddRecord("NoEncoding", nil)
	store.AddRecord("Truncated", []byte{1, 2, 3})
	store.AddEmbedding("WrongDim", vec(8, 1))
	store.AddEmbedding("Alice", vec(4, 1))

	c := newTestCache(store)
	snap, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Len() != 1 || snap.Names[0] != "Alice" {
		t.Errorf("expected only Alice, got %v", snap.Names)
	}
}

func TestCache_LoadErrorKeepsPreviousSnapshot(t *testing.T) {
	store := mock.NewMockGalleryStore()
	store.AddEmbedding("Alice", vec(4, 1))

	c := newTestCache(store)
	first, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.ListError = errors.New("connection refused")
	snap, err := c.Load(context.Background())
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
	if snap != first || c.Snapshot() != first {
		t.Error("expected previous snapshot to stay in effect")
	}
}

func TestCache_ZeroUsableRecordsMatchUnknown(t *testing.T) {
	store := mock.NewMockGalleryStore()
	store.AddEmbedding("Alice", vec(4, 1))

	c := newTestCache(store)
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.Clear()
	store.AddRecord("Broken", []byte("garbage!"))
	snap, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Len() != 0 {
		t.Fatalf("expected empty snapshot, got %d entries", snap.Len())
	}

	m := facematch.NewMatcher(0.6)
	got := m.Match(vec(4, 1), c.Snapshot())
	if got.Known() {
		t.Errorf("expected Unknown on empty gallery, got %s", got.Name)
	}
}

func TestCache_BuildsIndexAboveThreshold(t *testing.T) {
	store := mock.NewMockGalleryStore()
	for i := range 5 {
		store.AddEmbedding("P"+string(rune('A'+i)), vec(4, float64(i)))
	}

	c := NewCache(store, Options{EmbeddingDim: 4, IndexMinGallery: 3, Logger: quietLogger()})
	snap, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.Indexed() {
		t.Error("expected index for gallery above threshold")
	}

	c = NewCache(store, Options{EmbeddingDim: 4, IndexMinGallery: 10, Logger: quietLogger()})
	snap, _ = c.Load(context.Background())
	if snap.Indexed() {
		t.Error("expected no index for gallery below threshold")
	}
}

func TestCache_ReloadIsIdempotent(t *testing.T) {
	store := mock.NewMockGalleryStore()
	store.AddEmbedding("Alice", vec(4, 1))
	c := newTestCache(store)

	a, _ := c.Load(context.Background())
	b, _ := c.Load(context.Background())
	if a.ID == b.ID {
		t.Error("expected a new snapshot ID per load")
	}
	if a.Len() != b.Len() || a.Names[0] != b.Names[0] {
		t.Error("expected identical content across reloads")
	}
	if store.ListCalls != 2 {
		t.Errorf("expected 2 store reads, got %d", store.ListCalls)
	}
}

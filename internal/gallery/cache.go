// Package gallery keeps the in-memory snapshot of known faces and implements
// the two-step enrolment protocol against the gallery store.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/kozaktomas/facecam/internal/constants"
	"github.com/kozaktomas/facecam/internal/database"
	"github.com/kozaktomas/facecam/internal/facematch"
)

// ErrLoad is returned when the gallery store cannot be read. The previous
// snapshot stays in effect.
var ErrLoad = errors.New("gallery load failed")

// Options configures a Cache.
type Options struct {
	// EmbeddingDim is the dimension every stored encoding must decode to.
	EmbeddingDim int
	// IndexMinGallery builds an approximate index when the gallery has at least
	// this many entries. Zero disables the index.
	IndexMinGallery int
	Logger          *slog.Logger
}

// Cache holds the current gallery snapshot. Load swaps the whole snapshot at
// once, so matchers holding an older snapshot keep a consistent view.
type Cache struct {
	store    database.GalleryReader
	dim      int
	indexMin int
	logger   *slog.Logger

	loadMu  sync.Mutex
	current atomic.Pointer[facematch.Snapshot]
}

// NewCache creates a cache over store. It starts empty until Load succeeds.
func NewCache(store database.GalleryReader, opts Options) *Cache {
	if opts.EmbeddingDim <= 0 {
		opts.EmbeddingDim = constants.DefaultEmbeddingDim
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Cache{
		store:    store,
		dim:      opts.EmbeddingDim,
		indexMin: opts.IndexMinGallery,
		logger:   opts.Logger,
	}
	c.current.Store(facematch.EmptySnapshot())
	return c
}

// Snapshot returns the current snapshot. It is never nil.
func (c *Cache) Snapshot() *facematch.Snapshot {
	return c.current.Load()
}

// Load reads every gallery record from the store and publishes a new snapshot.
// Records without an encoding are skipped silently, malformed encodings are
// skipped with a warning. A store failure returns ErrLoad and keeps the old
// snapshot.
func (c *Cache) Load(ctx context.Context) (*facematch.Snapshot, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	records, err := c.store.ListGalleryRecords(ctx)
	if err != nil {
		return c.Snapshot(), fmt.Errorf("%w: %w", ErrLoad, err)
	}

	entries := make([]facematch.Entry, 0, len(records))
	var missing, malformed int
	for _, rec := range records {
		if rec.Encoding == nil {
			missing++
			continue
		}
		embedding, err := database.DecodeEmbedding(rec.Encoding, c.dim)
		if err != nil {
			malformed++
			c.logger.Warn("skipping gallery record",
				"face_image_id", rec.FaceImageID,
				"name", rec.Name,
				"error", err)
			continue
		}
		entries = append(entries, facematch.Entry{
			PersonID: rec.PersonID,
			Attributes: facematch.Attributes{
				Name:       rec.Name,
				ClassName:  rec.ClassName,
				Age:        rec.Age,
				Department: rec.Department,
			},
			Embedding: embedding,
		})
	}

	snap := facematch.NewSnapshot(uuid.NewString(), entries)
	if c.indexMin > 0 && snap.Len() >= c.indexMin {
		if err := snap.BuildIndex(); err != nil {
			// The exact scan still serves every match.
			c.logger.Warn("gallery index unavailable", "error", err)
		}
	}
	c.current.Store(snap)

	c.logger.Info("gallery loaded",
		"snapshot", snap.ID,
		"entries", snap.Len(),
		"identities", snap.Identities(),
		"without_encoding", missing,
		"malformed", malformed,
		"indexed", snap.Indexed())
	return snap, nil
}

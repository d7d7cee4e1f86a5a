package facematch

import (
	"fmt"
	"time"

	"github.com/kozaktomas/facecam/internal/database"
)

// Entry is one usable gallery face: a display name and its embedding.
type Entry struct {
	PersonID   int64
	Attributes Attributes
	Embedding  []float64
}

// Snapshot is an immutable view of the gallery. Embeddings, Names and PersonIDs
// are index-aligned and ordered as the store returned them; that order decides
// ties. A Snapshot must not be modified after NewSnapshot returns it.
type Snapshot struct {
	ID         string
	LoadedAt   time.Time
	Embeddings [][]float64
	Names      []string
	PersonIDs  []int64
	// Details maps a display name to its attributes. When several entries
	// share a name the last one wins.
	Details map[string]Attributes

	index *database.HNSWIndex
}

// NewSnapshot builds a snapshot from entries in store order.
func NewSnapshot(id string, entries []Entry) *Snapshot {
	s := &Snapshot{
		ID:         id,
		LoadedAt:   time.Now(),
		Embeddings: make([][]float64, 0, len(entries)),
		Names:      make([]string, 0, len(entries)),
		PersonIDs:  make([]int64, 0, len(entries)),
		Details:    make(map[string]Attributes, len(entries)),
	}
	for _, e := range entries {
		s.Embeddings = append(s.Embeddings, e.Embedding)
		s.Names = append(s.Names, e.Attributes.Name)
		s.PersonIDs = append(s.PersonIDs, e.PersonID)
		s.Details[e.Attributes.Name] = e.Attributes
	}
	return s
}

// EmptySnapshot returns a snapshot with no entries.
func EmptySnapshot() *Snapshot {
	return NewSnapshot("", nil)
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Embeddings)
}

// Identities returns the number of distinct display names.
func (s *Snapshot) Identities() int {
	if s == nil {
		return 0
	}
	return len(s.Details)
}

// BuildIndex attaches an approximate nearest neighbor index over the embeddings.
// It must be called before the snapshot is published.
func (s *Snapshot) BuildIndex() error {
	idx := database.NewHNSWIndex()
	if err := idx.Build(s.Embeddings); err != nil {
		return fmt.Errorf("building gallery index: %w", err)
	}
	s.index = idx
	return nil
}

// Indexed reports whether the snapshot carries an approximate index.
func (s *Snapshot) Indexed() bool {
	return s != nil && s.index != nil
}

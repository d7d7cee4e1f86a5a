package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWIndex wraps an HNSW graph over gallery embeddings. Node keys are
// positions in the slice the index was built from.
type HNSWIndex struct {
	graph *hnsw.Graph[int]
	count int
	mu    sync.RWMutex
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{}
}

// Build replaces the index contents with the given embeddings.
func (h *HNSWIndex) Build(embeddings [][]float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(embeddings) == 0 {
		h.graph = nil
		h.count = 0
		return nil
	}

	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance

	for i, emb := range embeddings {
		if len(emb) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(i, ToFloat32(emb)))
	}

	h.graph = g
	h.count = g.Len()
	return nil
}

// Search returns the positions of up to k approximate nearest neighbors.
func (h *HNSWIndex) Search(query []float64, k int) ([]int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, errors.New("index not initialized")
	}

	neighbors := h.graph.Search(ToFloat32(query), k)
	ids := make([]int, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.Key
	}
	return ids, nil
}

// Count returns the number of indexed embeddings.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

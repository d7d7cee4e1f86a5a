package facematch

import (
	"math"

	"github.com/kozaktomas/facecam/internal/constants"
	"github.com/kozaktomas/facecam/internal/database"
)

// Matcher assigns faces to gallery identities by nearest Euclidean neighbor.
type Matcher struct {
	tolerance float64
	// candidates is the number of index hits ranked per approximate search.
	candidates int
}

// NewMatcher creates a matcher; a non-positive tolerance selects the default.
func NewMatcher(tolerance float64) *Matcher {
	if tolerance <= 0 {
		tolerance = constants.DefaultTolerance
	}
	return &Matcher{
		tolerance:  tolerance,
		candidates: database.HNSWSearchMultiplier * 8,
	}
}

// Tolerance returns the maximum accepted distance.
func (m *Matcher) Tolerance() float64 {
	return m.tolerance
}

// Match finds the nearest entry of snap by scanning every embedding. The face
// matches that entry iff its distance is at most the tolerance; among equally
// near entries the first in snapshot order wins. The snapshot index is never
// consulted here.
func (m *Matcher) Match(embedding []float64, snap *Snapshot) Match {
	unknown := Match{Index: -1, Name: constants.UnknownName, Distance: math.Inf(1)}
	if snap.Len() == 0 {
		return unknown
	}

	best, dist := nearest(embedding, snap.Embeddings)

	unknown.Distance = dist
	if best < 0 || dist > m.tolerance {
		return unknown
	}
	return Match{
		Index:    best,
		PersonID: snap.PersonIDs[best],
		Name:     snap.Names[best],
		Distance: dist,
	}
}

// nearest scans all embeddings. Strict less-than keeps the first of equal minima.
func nearest(embedding []float64, embeddings [][]float64) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for i, known := range embeddings {
		d := database.EuclideanDistance(embedding, known)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// Approximate ranks the index candidates of an indexed snapshot and applies the
// tolerance to the best of them. The result can differ from Match; it is meant
// for diagnostics. ok is false when snap has no index.
func (m *Matcher) Approximate(embedding []float64, snap *Snapshot) (match Match, ok bool) {
	if !snap.Indexed() {
		return Match{}, false
	}
	ids, err := snap.index.Search(embedding, m.candidates)
	if err != nil {
		return Match{}, false
	}

	best, bestDist := -1, math.Inf(1)
	for _, i := range ids {
		d := database.EuclideanDistance(embedding, snap.Embeddings[i])
		if d < bestDist || (d == bestDist && i < best) {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > m.tolerance {
		return Match{Index: -1, Name: constants.UnknownName, Distance: bestDist}, true
	}
	return Match{
		Index:    best,
		PersonID: snap.PersonIDs[best],
		Name:     snap.Names[best],
		Distance: bestDist,
	}, true
}

// Recognize matches every face of one frame. It returns one label per face, in
// detection order, and the attribute records of the faces that matched.
func (m *Matcher) Recognize(faces []Face, snap *Snapshot) ([]Labeled, []Result) {
	labels := make([]Labeled, 0, len(faces))
	results := make([]Result, 0, len(faces))

	for _, face := range faces {
		match := m.Match(face.Embedding, snap)
		labels = append(labels, Labeled{Box: face.Box, Label: match.Name})
		if !match.Known() {
			continue
		}

		attrs := snap.Details[match.Name]
		attrs.Time = constants.AttributeTimeNow
		results = append(results, Result{
			Attributes: attrs,
			PersonID:   match.PersonID,
			Distance:   match.Distance,
		})
	}
	return labels, results
}

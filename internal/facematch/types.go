// Package facematch decides which known identity, if any, a detected face belongs to.
package facematch

import (
	"image"
)

// Box is a face bounding box in pixel coordinates, in the (top, right, bottom, left)
// order used by dlib-style detectors.
type Box struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Face is a detected face: its box in the coordinate space of the image it was
// detected in and one embedding.
type Face struct {
	Box       Box
	Embedding []float64
}

// Attributes is the display record of a known identity.
type Attributes struct {
	Name       string `json:"name"`
	ClassName  string `json:"class_name"`
	Age        *int   `json:"age"`
	Department string `json:"department"`
	Time       string `json:"time"`
}

// Result is one recognized identity of a processed frame.
type Result struct {
	Attributes
	PersonID int64   `json:"person_id"`
	Distance float64 `json:"distance"`
}

// Match is the matcher's decision for a single face.
type Match struct {
	// Index is the position of the matched entry in the snapshot, -1 when unknown.
	Index    int
	PersonID int64
	Name     string
	// Distance to the nearest gallery entry; +Inf when the gallery is empty.
	Distance float64
}

// Known reports whether the face matched a gallery entry within tolerance.
func (m Match) Known() bool {
	return m.Index >= 0
}

// Labeled pairs a face box with the label drawn for it.
type Labeled struct {
	Box   Box
	Label string
}

// Rect returns the box as an image rectangle (min inclusive, max exclusive).
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

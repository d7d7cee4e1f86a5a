package database

import (
	"time"
)

// Person is an identity known to the gallery.
type Person struct {
	ID         int64
	Name       string
	ClassName  string
	Age        *int // nil when unknown
	Department string
	CreatedAt  time.Time
}

// FaceImage is a stored reference photo of a person. An image without an
// encoding has been stored but the embedding step has not (successfully) run.
type FaceImage struct {
	ID          int64
	PersonID    int64
	PersonName  string
	ImagePath   string
	HasEncoding bool
	CreatedAt   time.Time
}

// GalleryRecord is one face image joined with its person, as consumed by the
// gallery cache. Encoding holds the serialized embedding and is nil when the
// image has not been encoded.
type GalleryRecord struct {
	FaceImageID int64
	PersonID    int64
	Name        string
	ClassName   string
	Age         *int
	Department  string
	Encoding    []byte
}

// NearestFace is a face image returned by a store-side nearest neighbor query.
type NearestFace struct {
	FaceImageID int64
	PersonID    int64
	Name        string
	Distance    float64
}

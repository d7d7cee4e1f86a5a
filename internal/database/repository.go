package database

import (
	"context"
)

// GalleryReader provides read-only access to the known faces gallery
type GalleryReader interface {
	// ListGalleryRecords returns every face image with its person attributes,
	// ordered by face image ID. Records without an encoding are included
	// with a nil Encoding; callers decide whether to skip them.
	ListGalleryRecords(ctx context.Context) ([]GalleryRecord, error)
	// CountPersons returns the number of known persons
	CountPersons(ctx context.Context) (int, error)
}

// GalleryWriter provides the two-step enrolment protocol: images are stored
// first and encoded in a separate, explicit step.
type GalleryWriter interface {
	GalleryReader

	// CreatePerson stores a person and sets its ID
	CreatePerson(ctx context.Context, person *Person) error
	// FindPersonByName returns the person with the given name, or nil if none exists
	FindPersonByName(ctx context.Context, name string) (*Person, error)
	// AddFaceImage stores an image path for a person without an encoding
	AddFaceImage(ctx context.Context, personID int64, imagePath string) (int64, error)
	// ListFaceImages returns stored images, optionally only those without an encoding
	ListFaceImages(ctx context.Context, pendingOnly bool) ([]FaceImage, error)
	// SetEncoding stores the embedding computed for a face image
	SetEncoding(ctx context.Context, faceImageID int64, embedding []float64) error
}

// NearestFinder finds the gallery faces closest to an embedding using the store's own index
type NearestFinder interface {
	FindNearest(ctx context.Context, embedding []float64, limit int) ([]NearestFace, error)
}

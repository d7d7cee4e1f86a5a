package gallery

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/facecam/internal/database"
)

// imageExtensions are the still photo formats accepted for enrolment.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IsImageFile reports whether path has an accepted photo extension.
func IsImageFile(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// NameFromPath returns the person name encoded in a photo file name
// ("photos/Jane Doe.jpg" -> "Jane Doe").
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Enrolled describes a stored, not yet encoded, face image.
type Enrolled struct {
	PersonID      int64
	PersonName    string
	FaceImageID   int64
	ImagePath     string
	CreatedPerson bool
}

// Enroll stores a photo for the person named by its file name, creating the
// person when needed. No embedding is computed; run Encode afterwards.
func Enroll(ctx context.Context, store database.GalleryWriter, imagePath string) (*Enrolled, error) {
	name := strings.TrimSpace(NameFromPath(imagePath))
	if name == "" {
		return nil, fmt.Errorf("no person name in file name %q", imagePath)
	}

	person, err := store.FindPersonByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("looking up person %q: %w", name, err)
	}
	created := false
	if person == nil {
		person = &database.Person{Name: name}
		if err := store.CreatePerson(ctx, person); err != nil {
			return nil, fmt.Errorf("creating person %q: %w", name, err)
		}
		created = true
	}

	id, err := store.AddFaceImage(ctx, person.ID, imagePath)
	if err != nil {
		return nil, fmt.Errorf("storing image for %q: %w", name, err)
	}

	return &Enrolled{
		PersonID:      person.ID,
		PersonName:    person.Name,
		FaceImageID:   id,
		ImagePath:     imagePath,
		CreatedPerson: created,
	}, nil
}

// Embedder computes the embedding of the single face in a still photo.
type Embedder interface {
	EmbedFile(ctx context.Context, path string) ([]float64, error)
}

// EncodeResult is the outcome of encoding one stored image.
type EncodeResult struct {
	Image database.FaceImage
	Err   error
}

// OK reports whether the image was encoded.
func (r EncodeResult) OK() bool {
	return r.Err == nil
}

// Encode runs the embedding step for stored images and saves each embedding.
// Every image gets a result; a failure on one image does not stop the rest.
// With all false only images without an encoding are processed. progress, if
// set, is called after each image.
func Encode(ctx context.Context, store database.GalleryWriter, embedder Embedder, all bool, progress func(EncodeResult)) ([]EncodeResult, error) {
	images, err := store.ListFaceImages(ctx, !all)
	if err != nil {
		return nil, fmt.Errorf("listing face images: %w", err)
	}

	results := make([]EncodeResult, 0, len(images))
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := EncodeResult{Image: img}
		embedding, err := embedder.EmbedFile(ctx, img.ImagePath)
		if err != nil {
			res.Err = fmt.Errorf("encoding %s: %w", img.ImagePath, err)
		} else if err := store.SetEncoding(ctx, img.ID, embedding); err != nil {
			res.Err = fmt.Errorf("saving encoding for %s: %w", img.ImagePath, err)
		}

		results = append(results, res)
		if progress != nil {
			progress(res)
		}
	}
	return results, nil
}

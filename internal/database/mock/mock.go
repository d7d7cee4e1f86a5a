// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/kozaktomas/facecam/internal/database"
)

// MockGalleryStore is an in-memory implementation of database.GalleryWriter
// and database.NearestFinder
type MockGalleryStore struct {
	mu      sync.RWMutex
	persons []database.Person
	images  []mockImage
	nextID  int64

	// Error injection
	ListError        error
	CountError       error
	CreateError      error
	AddImageError    error
	SetEncodingError error
	FindNearestError error

	// ListCalls counts ListGalleryRecords invocations
	ListCalls int
}

type mockImage struct {
	id       int64
	personID int64
	path     string
	encoding []byte
}

// NewMockGalleryStore creates a new empty mock gallery store
func NewMockGalleryStore() *MockGalleryStore {
	return &MockGalleryStore{nextID: 1}
}

// AddRecord adds a person with one face image carrying a raw encoding (nil for none)
// and returns the face image ID
func (m *MockGalleryStore) AddRecord(name string, encoding []byte) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var personID int64
	for _, p := range m.persons {
		if p.Name == name {
			personID = p.ID
		}
	}
	if personID == 0 {
		personID = m.nextID
		m.nextID++
		m.persons = append(m.persons, database.Person{ID: personID, Name: name})
	}

	id := m.nextID
	m.nextID++
	m.images = append(m.images, mockImage{id: id, personID: personID, path: name + ".jpg", encoding: encoding})
	return id
}

// AddEmbedding adds a person with one face image encoded from an embedding
func (m *MockGalleryStore) AddEmbedding(name string, embedding []float64) int64 {
	return m.AddRecord(name, database.EncodeEmbedding(embedding))
}

// SetPersonAttributes updates the optional attributes of a person by name
func (m *MockGalleryStore) SetPersonAttributes(name, className string, age *int, department string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.persons {
		if m.persons[i].Name == name {
			m.persons[i].ClassName = className
			m.persons[i].Age = age
			m.persons[i].Department = department
		}
	}
}

// Clear removes all persons and images
func (m *MockGalleryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persons = nil
	m.images = nil
}

func (m *MockGalleryStore) person(id int64) database.Person {
	for _, p := range m.persons {
		if p.ID == id {
			return p
		}
	}
	return database.Person{ID: id}
}

// ListGalleryRecords returns all face images with their person attributes
func (m *MockGalleryStore) ListGalleryRecords(ctx context.Context) ([]database.GalleryRecord, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]database.GalleryRecord, 0, len(m.images))
	for _, img := range m.images {
		p := m.person(img.personID)
		records = append(records, database.GalleryRecord{
			FaceImageID: img.id,
			PersonID:    p.ID,
			Name:        p.Name,
			ClassName:   p.ClassName,
			Age:         p.Age,
			Department:  p.Department,
			Encoding:    img.encoding,
		})
	}
	return records, nil
}

// CountPersons returns the number of persons
func (m *MockGalleryStore) CountPersons(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.persons), nil
}

// CreatePerson stores a person
func (m *MockGalleryStore) CreatePerson(ctx context.Context, person *database.Person) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	person.ID = m.nextID
	m.nextID++
	m.persons = append(m.persons, *person)
	return nil
}

// FindPersonByName returns the person with the given name, or nil
func (m *MockGalleryStore) FindPersonByName(ctx context.Context, name string) (*database.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.persons {
		if p.Name == name {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

// AddFaceImage stores an image path without an encoding
func (m *MockGalleryStore) AddFaceImage(ctx context.Context, personID int64, imagePath string) (int64, error) {
	if m.AddImageError != nil {
		return 0, m.AddImageError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.images = append(m.images, mockImage{id: id, personID: personID, path: imagePath})
	return id, nil
}

// ListFaceImages returns stored images
func (m *MockGalleryStore) ListFaceImages(ctx context.Context, pendingOnly bool) ([]database.FaceImage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var images []database.FaceImage
	for _, img := range m.images {
		if pendingOnly && img.encoding != nil {
			continue
		}
		images = append(images, database.FaceImage{
			ID:          img.id,
			PersonID:    img.personID,
			PersonName:  m.person(img.personID).Name,
			ImagePath:   img.path,
			HasEncoding: img.encoding != nil,
		})
	}
	return images, nil
}

// SetEncoding stores an embedding for a face image
func (m *MockGalleryStore) SetEncoding(ctx context.Context, faceImageID int64, embedding []float64) error {
	if m.SetEncodingError != nil {
		return m.SetEncodingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.images {
		if m.images[i].id == faceImageID {
			m.images[i].encoding = database.EncodeEmbedding(embedding)
			return nil
		}
	}
	return nil
}

// FindNearest returns encoded face images ordered by Euclidean distance
func (m *MockGalleryStore) FindNearest(ctx context.Context, embedding []float64, limit int) ([]database.NearestFace, error) {
	if m.FindNearestError != nil {
		return nil, m.FindNearestError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []database.NearestFace
	for _, img := range m.images {
		vec, err := database.DecodeEmbedding(img.encoding, len(embedding))
		if err != nil {
			continue
		}
		p := m.person(img.personID)
		results = append(results, database.NearestFace{
			FaceImageID: img.id,
			PersonID:    p.ID,
			Name:        p.Name,
			Distance:    database.EuclideanDistance(embedding, vec),
		})
	}
	slices.SortStableFunc(results, func(a, b database.NearestFace) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

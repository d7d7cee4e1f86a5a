package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/facecam/internal/database"
	"github.com/pgvector/pgvector-go"
)

// GalleryRepository provides PostgreSQL-backed storage of persons and their face images.
type GalleryRepository struct {
	pool *Pool
}

// NewGalleryRepository creates a new PostgreSQL gallery repository.
func NewGalleryRepository(pool *Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// ListGalleryRecords returns every face image joined with its person, in face image order.
func (r *GalleryRepository) ListGalleryRecords(ctx context.Context) ([]database.GalleryRecord, error) {
	query := `
		SELECT fi.id, p.id, p.name, p.class_name, p.age, p.department, fi.encoding
		FROM face_images fi
		JOIN persons p ON p.id = fi.person_id
		ORDER BY fi.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query gallery records: %w", err)
	}
	defer rows.Close()

	var records []database.GalleryRecord
	for rows.Next() {
		rec, err := scanGalleryRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gallery records: %w", err)
	}
	return records, nil
}

func scanGalleryRecord(scanner interface{ Scan(...any) error }) (database.GalleryRecord, error) {
	var rec database.GalleryRecord
	var age sql.NullInt32

	if err := scanner.Scan(
		&rec.FaceImageID,
		&rec.PersonID,
		&rec.Name,
		&rec.ClassName,
		&age,
		&rec.Department,
		&rec.Encoding,
	); err != nil {
		return rec, fmt.Errorf("scan gallery record: %w", err)
	}

	if age.Valid {
		a := int(age.Int32)
		rec.Age = &a
	}
	return rec, nil
}

// CountPersons returns the number of known persons.
func (r *GalleryRepository) CountPersons(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM persons").Scan(&count); err != nil {
		return 0, fmt.Errorf("count persons: %w", err)
	}
	return count, nil
}

// CreatePerson stores a person and sets its ID.
func (r *GalleryRepository) CreatePerson(ctx context.Context, person *database.Person) error {
	var age sql.NullInt32
	if person.Age != nil {
		age = sql.NullInt32{Int32: int32(*person.Age), Valid: true} //nolint:gosec // ages are small
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO persons (name, class_name, age, department)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, person.Name, person.ClassName, age, person.Department).Scan(&person.ID, &person.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert person %q: %w", person.Name, err)
	}
	return nil
}

// FindPersonByName returns the person with the given name, or nil if none exists.
func (r *GalleryRepository) FindPersonByName(ctx context.Context, name string) (*database.Person, error) {
	var p database.Person
	var age sql.NullInt32

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, class_name, age, department, created_at
		FROM persons
		WHERE name = $1
	`, name).Scan(&p.ID, &p.Name, &p.ClassName, &age, &p.Department, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find person %q: %w", name, err)
	}

	if age.Valid {
		a := int(age.Int32)
		p.Age = &a
	}
	return &p, nil
}

// AddFaceImage stores an image path for a person without an encoding.
func (r *GalleryRepository) AddFaceImage(ctx context.Context, personID int64, imagePath string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO face_images (person_id, image_path)
		VALUES ($1, $2)
		RETURNING id
	`, personID, imagePath).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert face image: %w", err)
	}
	return id, nil
}

// ListFaceImages returns stored images, optionally only those still waiting for an encoding.
func (r *GalleryRepository) ListFaceImages(ctx context.Context, pendingOnly bool) ([]database.FaceImage, error) {
	query := `
		SELECT fi.id, fi.person_id, p.name, fi.image_path, fi.encoding IS NOT NULL, fi.created_at
		FROM face_images fi
		JOIN persons p ON p.id = fi.person_id
	`
	if pendingOnly {
		query += " WHERE fi.encoding IS NULL"
	}
	query += " ORDER BY fi.id"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query face images: %w", err)
	}
	defer rows.Close()

	var images []database.FaceImage
	for rows.Next() {
		var img database.FaceImage
		if err := rows.Scan(&img.ID, &img.PersonID, &img.PersonName, &img.ImagePath, &img.HasEncoding, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face images: %w", err)
	}
	return images, nil
}

// SetEncoding stores the serialized encoding and its vector mirror for a face image.
func (r *GalleryRepository) SetEncoding(ctx context.Context, faceImageID int64, embedding []float64) error {
	vec := pgvector.NewVector(database.ToFloat32(embedding))

	result, err := r.pool.Exec(ctx, `
		UPDATE face_images
		SET encoding = $2, embedding = $3::vector, encoded_at = NOW()
		WHERE id = $1
	`, faceImageID, database.EncodeEmbedding(embedding), vec)
	if err != nil {
		return fmt.Errorf("update encoding for face image %d: %w", faceImageID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("face image %d not found", faceImageID)
	}
	return nil
}

// FindNearest returns the encoded face images closest to the embedding by L2 distance.
func (r *GalleryRepository) FindNearest(ctx context.Context, embedding []float64, limit int) ([]database.NearestFace, error) {
	query := `
		SELECT fi.id, p.id, p.name, fi.embedding <-> $1::vector AS distance
		FROM face_images fi
		JOIN persons p ON p.id = fi.person_id
		WHERE fi.embedding IS NOT NULL AND vector_dims(fi.embedding) = $3
		ORDER BY distance, fi.id
		LIMIT $2
	`

	vec := pgvector.NewVector(database.ToFloat32(embedding))
	rows, err := r.pool.Query(ctx, query, vec, limit, len(embedding))
	if err != nil {
		return nil, fmt.Errorf("query nearest faces: %w", err)
	}
	defer rows.Close()

	var results []database.NearestFace
	for rows.Next() {
		var nf database.NearestFace
		if err := rows.Scan(&nf.FaceImageID, &nf.PersonID, &nf.Name, &nf.Distance); err != nil {
			return nil, fmt.Errorf("scan nearest face: %w", err)
		}
		results = append(results, nf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nearest faces: %w", err)
	}
	return results, nil
}

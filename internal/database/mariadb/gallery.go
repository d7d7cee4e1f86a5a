package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/facecam/internal/database"
)

// GalleryRepository reads and writes the gallery stored in MariaDB.
// Encodings are BLOBs of little-endian float64 values.
type GalleryRepository struct {
	pool *Pool
}

// NewGalleryRepository creates a new MariaDB gallery repository.
func NewGalleryRepository(pool *Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// ListGalleryRecords returns every face image joined with its person, in face image order.
func (r *GalleryRepository) ListGalleryRecords(ctx context.Context) ([]database.GalleryRecord, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT fi.id, p.id, p.name, p.class_name, p.age, p.department, fi.encoding
		FROM core_faceimage fi
		JOIN core_person p ON p.id = fi.person_id
		ORDER BY fi.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query gallery records: %w", err)
	}
	defer rows.Close()

	var records []database.GalleryRecord
	for rows.Next() {
		var rec database.GalleryRecord
		var age sql.NullInt64
		var className, department sql.NullString
		if err := rows.Scan(&rec.FaceImageID, &rec.PersonID, &rec.Name, &className, &age, &department, &rec.Encoding); err != nil {
			return nil, fmt.Errorf("scan gallery record: %w", err)
		}
		rec.ClassName = className.String
		rec.Department = department.String
		if age.Valid {
			a := int(age.Int64)
			rec.Age = &a
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gallery records: %w", err)
	}
	return records, nil
}

// CountPersons returns the number of known persons.
func (r *GalleryRepository) CountPersons(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM core_person").Scan(&count); err != nil {
		return 0, fmt.Errorf("count persons: %w", err)
	}
	return count, nil
}

// CreatePerson stores a person and sets its ID.
func (r *GalleryRepository) CreatePerson(ctx context.Context, person *database.Person) error {
	var age sql.NullInt64
	if person.Age != nil {
		age = sql.NullInt64{Int64: int64(*person.Age), Valid: true}
	}

	result, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO core_person (name, class_name, age, department, created_at)
		VALUES (?, ?, ?, ?, NOW())
	`, person.Name, person.ClassName, age, person.Department)
	if err != nil {
		return fmt.Errorf("insert person %q: %w", person.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	person.ID = id
	return nil
}

// FindPersonByName returns the first person with the given name, or nil if none exists.
func (r *GalleryRepository) FindPersonByName(ctx context.Context, name string) (*database.Person, error) {
	var p database.Person
	var age sql.NullInt64
	var className, department sql.NullString

	err := r.pool.db.QueryRowContext(ctx, `
		SELECT id, name, class_name, age, department, created_at
		FROM core_person
		WHERE name = ?
		ORDER BY id
		LIMIT 1
	`, name).Scan(&p.ID, &p.Name, &className, &age, &department, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find person %q: %w", name, err)
	}

	p.ClassName = className.String
	p.Department = department.String
	if age.Valid {
		a := int(age.Int64)
		p.Age = &a
	}
	return &p, nil
}

// AddFaceImage stores an image path for a person without an encoding.
func (r *GalleryRepository) AddFaceImage(ctx context.Context, personID int64, imagePath string) (int64, error) {
	result, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO core_faceimage (person_id, image, encoding)
		VALUES (?, ?, NULL)
	`, personID, imagePath)
	if err != nil {
		return 0, fmt.Errorf("insert face image: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// ListFaceImages returns stored images, optionally only those still waiting for an encoding.
func (r *GalleryRepository) ListFaceImages(ctx context.Context, pendingOnly bool) ([]database.FaceImage, error) {
	query := `
		SELECT fi.id, fi.person_id, p.name, fi.image, fi.encoding IS NOT NULL
		FROM core_faceimage fi
		JOIN core_person p ON p.id = fi.person_id
	`
	if pendingOnly {
		query += " WHERE fi.encoding IS NULL"
	}
	query += " ORDER BY fi.id"

	rows, err := r.pool.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query face images: %w", err)
	}
	defer rows.Close()

	var images []database.FaceImage
	for rows.Next() {
		var img database.FaceImage
		if err := rows.Scan(&img.ID, &img.PersonID, &img.PersonName, &img.ImagePath, &img.HasEncoding); err != nil {
			return nil, fmt.Errorf("scan face image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face images: %w", err)
	}
	return images, nil
}

// SetEncoding stores the serialized encoding for a face image.
func (r *GalleryRepository) SetEncoding(ctx context.Context, faceImageID int64, embedding []float64) error {
	// Verify the image exists first (MySQL RowsAffected returns 0 when data is unchanged)
	var exists bool
	err := r.pool.db.QueryRowContext(ctx, `SELECT 1 FROM core_faceimage WHERE id = ?`, faceImageID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("face image %d not found", faceImageID)
	}

	if _, err := r.pool.db.ExecContext(ctx,
		`UPDATE core_faceimage SET encoding = ? WHERE id = ?`,
		database.EncodeEmbedding(embedding), faceImageID,
	); err != nil {
		return fmt.Errorf("update encoding for face image %d: %w", faceImageID, err)
	}
	return nil
}

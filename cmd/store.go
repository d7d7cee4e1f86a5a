package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/facecam/internal/config"
	"github.com/kozaktomas/facecam/internal/database"
	"github.com/kozaktomas/facecam/internal/database/mariadb"
	"github.com/kozaktomas/facecam/internal/database/postgres"
)

// openGalleryStore connects to the gallery database selected by GALLERY_SOURCE.
// The returned function closes the connection.
func openGalleryStore(cfg *config.Config) (database.GalleryWriter, func(), error) {
	switch cfg.Gallery.Source {
	case config.SourceMariaDB:
		if cfg.MariaDB.DSN == "" {
			return nil, nil, errors.New("MARIADB_DSN environment variable is required")
		}
		pool, err := mariadb.NewPool(cfg.MariaDB.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MariaDB: %w", err)
		}
		return mariadb.NewGalleryRepository(pool), func() { pool.Close() }, nil

	default:
		if cfg.Database.URL == "" {
			return nil, nil, errors.New("DATABASE_URL environment variable is required")
		}
		pool, err := postgres.Open(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return postgres.NewGalleryRepository(pool), func() { pool.Close() }, nil
	}
}

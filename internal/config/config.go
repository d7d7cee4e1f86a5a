package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Gallery  GalleryConfig  `yaml:"gallery"`
	Database DatabaseConfig `yaml:"-"`
	MariaDB  MariaDBConfig  `yaml:"-"`
	Web      WebConfig      `yaml:"web"`
	Log      LogConfig      `yaml:"-"`
}

type CameraConfig struct {
	Device      string `yaml:"device"` // V4L2 device path, or a directory of images to replay
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	WaitTimeout int    `yaml:"wait_timeout"` // seconds to wait for a frame
}

type DetectorConfig struct {
	Backend   string `yaml:"backend"` // remote or dlib
	Model     string `yaml:"model"`   // hog or cnn
	URL       string `yaml:"url"`     // face embedding service base URL
	ModelsDir string `yaml:"models_dir"`
	Timeout   int    `yaml:"timeout"` // seconds per request
}

type PipelineConfig struct {
	Downscale       float64 `yaml:"downscale"`
	Tolerance       float64 `yaml:"tolerance"`
	IndexMinGallery int     `yaml:"index_min_gallery"`
	JPEGQuality     int     `yaml:"jpeg_quality"`
}

type GalleryConfig struct {
	Source       string `yaml:"source"` // postgres or mariadb
	EmbeddingDim int    `yaml:"embedding_dim"`
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MariaDBConfig struct {
	DSN string // e.g. facecam:facecam@tcp(mariadb:3306)/faces
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"-"` // CORS allow-list in addition to localhost
}

type LogConfig struct {
	Level  string // debug, info, warn or error
	Format string // text or json
}

// Detector backends and models.
const (
	BackendRemote = "remote"
	BackendDlib   = "dlib"
	ModelHOG      = "hog"
	ModelCNN      = "cnn"
	SourcePG      = "postgres"
	SourceMariaDB = "mariadb"
)

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString returns the environment variable or the default when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	var d Config
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Camera: CameraConfig{
			Device:      envString("CAMERA_DEVICE", d.Camera.Device),
			Width:       envInt("CAMERA_WIDTH", d.Camera.Width),
			Height:      envInt("CAMERA_HEIGHT", d.Camera.Height),
			WaitTimeout: envInt("CAMERA_WAIT_TIMEOUT", d.Camera.WaitTimeout),
		},
		Detector: DetectorConfig{
			Backend:   envString("DETECTOR_BACKEND", d.Detector.Backend),
			Model:     envString("DETECTOR_MODEL", d.Detector.Model),
			URL:       envString("DETECTOR_URL", d.Detector.URL),
			ModelsDir: envString("DETECTOR_MODELS_DIR", d.Detector.ModelsDir),
			Timeout:   envInt("DETECTOR_TIMEOUT", d.Detector.Timeout),
		},
		Pipeline: PipelineConfig{
			Downscale:       envFloat("PIPELINE_DOWNSCALE", d.Pipeline.Downscale),
			Tolerance:       envFloat("MATCH_TOLERANCE", d.Pipeline.Tolerance),
			IndexMinGallery: envInt("MATCH_INDEX_MIN_GALLERY", d.Pipeline.IndexMinGallery),
			JPEGQuality:     envInt("JPEG_QUALITY", d.Pipeline.JPEGQuality),
		},
		Gallery: GalleryConfig{
			Source:       envString("GALLERY_SOURCE", d.Gallery.Source),
			EmbeddingDim: envInt("EMBEDDING_DIM", d.Gallery.EmbeddingDim),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		MariaDB: MariaDBConfig{
			DSN: os.Getenv("MARIADB_DSN"),
		},
		Web: WebConfig{
			Host: envString("WEB_HOST", d.Web.Host),
			Port: envInt("WEB_PORT", d.Web.Port),

			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
	}
}

// Validate checks the values the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Pipeline.Downscale <= 0 || c.Pipeline.Downscale > 1 {
		errs = append(errs, fmt.Errorf("downscale must be in (0, 1], got %v", c.Pipeline.Downscale))
	}
	if c.Pipeline.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("tolerance must be positive, got %v", c.Pipeline.Tolerance))
	}
	if c.Pipeline.JPEGQuality < 1 || c.Pipeline.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("JPEG quality must be in [1, 100], got %d", c.Pipeline.JPEGQuality))
	}
	if c.Detector.Model != ModelHOG && c.Detector.Model != ModelCNN {
		errs = append(errs, fmt.Errorf("unknown detector model %q (want %s or %s)", c.Detector.Model, ModelHOG, ModelCNN))
	}
	if c.Detector.Backend != BackendRemote && c.Detector.Backend != BackendDlib {
		errs = append(errs, fmt.Errorf("unknown detector backend %q (want %s or %s)", c.Detector.Backend, BackendRemote, BackendDlib))
	}
	if c.Gallery.Source != SourcePG && c.Gallery.Source != SourceMariaDB {
		errs = append(errs, fmt.Errorf("unknown gallery source %q (want %s or %s)", c.Gallery.Source, SourcePG, SourceMariaDB))
	}
	if c.Camera.Device == "" {
		errs = append(errs, errors.New("camera device is required"))
	}

	return errors.Join(errs...)
}

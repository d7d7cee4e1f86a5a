package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for replayed frames
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// Directory replays the still images of a directory in name order, looping
// forever. It stands in for a camera in tests and on machines without V4L2.
type Directory struct {
	dir      string
	interval time.Duration

	mu     sync.Mutex
	files  []string
	next   int
	opened bool
	last   time.Time
}

// NewDirectory creates an unopened replay source.
func NewDirectory(dir string, interval time.Duration) *Directory {
	return &Directory{dir: dir, interval: interval}
}

// Open lists the images to replay. A missing directory or one without images
// is unavailable.
func (d *Directory) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.opened {
		return nil
	}

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(d.dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no images in %s", ErrDeviceUnavailable, d.dir)
	}
	slices.Sort(files)

	d.files = files
	d.next = 0
	d.opened = true
	return nil
}

// ReadFrame decodes the next image. An undecodable file is a transient failure;
// the following call moves on to the next file.
func (d *Directory) ReadFrame(ctx context.Context) (*image.RGBA, error) {
	d.mu.Lock()
	if !d.opened {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is not open", ErrFrameRead, d.dir)
	}
	path := d.files[d.next]
	d.next = (d.next + 1) % len(d.files)
	wait := time.Duration(0)
	if d.interval > 0 && !d.last.IsZero() {
		wait = d.interval - time.Since(d.last)
	}
	d.mu.Unlock()

	if wait > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	img, err := decodeFile(path)

	d.mu.Lock()
	d.last = time.Now()
	d.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFrameRead, filepath.Base(path), err)
	}
	return ToRGBA(img), nil
}

// Close forgets the file list.
func (d *Directory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = false
	d.files = nil
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

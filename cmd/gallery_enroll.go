package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/kozaktomas/facecam/internal/config"
	"github.com/kozaktomas/facecam/internal/gallery"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var galleryEnrollCmd = &cobra.Command{
	Use:   "enroll <photo-or-directory>...",
	Short: "Store photos of known people",
	Long: `Store photos of known people in the gallery. The person name is taken from
the file name without extension ("Jane Doe.jpg" enrolls "Jane Doe").
Directories are scanned for .jpg, .jpeg and .png files.

Enrolled photos have no encoding yet; run "gallery encode" afterwards.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGalleryEnroll,
}

func init() {
	galleryCmd.AddCommand(galleryEnrollCmd)
}

// collectImages expands directories into the photo files they contain.
func collectImages(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if !e.IsDir() && gallery.IsImageFile(e.Name()) {
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	slices.Sort(paths)
	return paths, nil
}

func runGalleryEnroll(cmd *cobra.Command, args []string) error {
	paths, err := collectImages(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No photos found")
		return nil
	}

	cfg := config.Load()
	store, closeStore, err := openGalleryStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var enrolled, created int
	var failures []string
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		res, err := gallery.Enroll(ctx, store, abs)
		bar.Add(1)
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		enrolled++
		if res.CreatedPerson {
			created++
		}
	}
	bar.Finish()

	fmt.Printf("\nEnrolled %d photos (%d new persons)\n", enrolled, created)
	for _, f := range failures {
		fmt.Printf("  failed: %s\n", f)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d photos failed", len(failures))
	}
	fmt.Println("Run \"facecam gallery encode\" to compute their embeddings")
	return nil
}

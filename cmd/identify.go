package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/facecam/internal/config"
	"github.com/kozaktomas/facecam/internal/database"
	"github.com/kozaktomas/facecam/internal/facedetect"
	"github.com/kozaktomas/facecam/internal/facematch"
	"github.com/kozaktomas/facecam/internal/gallery"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <photo-or-directory>...",
	Short: "Recognize the faces in still photos",
	Long: `Run the live matcher on still photos and print who it recognizes.
When the file name is a person's name, the result is checked against it.
With --sql the nearest face is also looked up by the database (PostgreSQL only).
When MATCH_INDEX_MIN_GALLERY builds a gallery index, faces where the index
would have answered differently are reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().Float64("tolerance", 0, "Match tolerance (default from MATCH_TOLERANCE)")
	identifyCmd.Flags().Bool("sql", false, "Cross-check with the database nearest-neighbor query")
}

// identified is the outcome for one photo.
type identified struct {
	path    string
	matches []facematch.Match
	// approx is aligned with matches when the gallery is indexed.
	approx []facematch.Match
	// nearest is aligned with matches; nil where the lookup found nothing.
	nearest []*database.NearestFace
	sqlErr  error
	err     error
}

func runIdentify(cmd *cobra.Command, args []string) error {
	paths, err := collectImages(args)
	if err != nil {
		return err
	}

	cfg := config.Load()
	if tol := mustGetFloat64(cmd, "tolerance"); tol > 0 {
		cfg.Pipeline.Tolerance = tol
	}

	store, closeStore, err := openGalleryStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var finder database.NearestFinder
	if mustGetBool(cmd, "sql") {
		f, ok := store.(database.NearestFinder)
		if !ok {
			return fmt.Errorf("--sql is not supported by the %s gallery", cfg.Gallery.Source)
		}
		finder = f
	}

	ctx := context.Background()
	cache := gallery.NewCache(store, gallery.Options{
		EmbeddingDim:    cfg.Gallery.EmbeddingDim,
		IndexMinGallery: cfg.Pipeline.IndexMinGallery,
		Logger:          slog.Default(),
	})
	snap, err := cache.Load(ctx)
	if err != nil {
		return err
	}

	detector, err := facedetect.New(cfg.Detector)
	if err != nil {
		return fmt.Errorf("creating detector: %w", err)
	}
	defer detector.Close()

	matcher := facematch.NewMatcher(cfg.Pipeline.Tolerance)
	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Identifying"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionFullWidth(),
	)

	results := make([]identified, 0, len(paths))
	for _, path := range paths {
		results = append(results, identifyPhoto(ctx, detector, matcher, snap, finder, path))
		bar.Add(1)
	}
	bar.Finish()
	fmt.Println()

	var checked, correct int
	for _, res := range results {
		if res.err != nil {
			fmt.Printf("%s: %v\n", res.path, res.err)
			continue
		}
		expected := facematch.NormalizePersonName(gallery.NameFromPath(res.path))
		for i, m := range res.matches {
			verdict := ""
			if expectedKnown(expected, snap) {
				checked++
				if facematch.NormalizePersonName(m.Name) == expected {
					correct++
					verdict = " ok"
				} else {
					verdict = " MISMATCH"
				}
			}
			fmt.Printf("%s [face %d]: %s (distance %.3f)%s\n", res.path, i+1, m.Name, m.Distance, verdict)
			if i < len(res.approx) && res.approx[i].Index != m.Index {
				a := res.approx[i]
				fmt.Printf("    index nearest differs: %s (distance %.3f)\n", a.Name, a.Distance)
			}
			if i < len(res.nearest) && res.nearest[i] != nil {
				n := res.nearest[i]
				fmt.Printf("    sql nearest: %s (distance %.3f)\n", n.Name, n.Distance)
			}
		}
		if res.sqlErr != nil {
			fmt.Printf("%s: %v\n", res.path, res.sqlErr)
		}
	}

	if checked > 0 {
		fmt.Printf("\n%d of %d faces matched the name in their file name\n", correct, checked)
	}
	return nil
}

// expectedKnown reports whether a normalized file name names a gallery identity.
func expectedKnown(expected string, snap *facematch.Snapshot) bool {
	for name := range snap.Details {
		if facematch.NormalizePersonName(name) == expected {
			return true
		}
	}
	return false
}

func identifyPhoto(ctx context.Context, det facedetect.Detector, matcher *facematch.Matcher,
	snap *facematch.Snapshot, finder database.NearestFinder, path string) identified {
	res := identified{path: path}

	img, err := facedetect.DecodeFile(path)
	if err != nil {
		res.err = err
		return res
	}
	faces, err := det.Detect(ctx, img)
	if err != nil {
		res.err = err
		return res
	}
	if len(faces) == 0 {
		res.err = facedetect.ErrNoFace
		return res
	}

	for _, face := range faces {
		res.matches = append(res.matches, matcher.Match(face.Embedding, snap))
		if approx, ok := matcher.Approximate(face.Embedding, snap); ok {
			res.approx = append(res.approx, approx)
		}
		if finder == nil {
			continue
		}
		var hit *database.NearestFace
		nearest, err := finder.FindNearest(ctx, face.Embedding, 1)
		if err != nil {
			res.sqlErr = errors.Join(res.sqlErr, fmt.Errorf("sql lookup: %w", err))
		} else if len(nearest) > 0 {
			hit = &nearest[0]
		}
		res.nearest = append(res.nearest, hit)
	}
	return res
}

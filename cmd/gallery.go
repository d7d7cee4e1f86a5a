package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/kozaktomas/facecam/internal/config"
	"github.com/kozaktomas/facecam/internal/gallery"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Manage the gallery of known faces",
	Long: `Manage the gallery of known faces.
Adding a person is a two-step process: "gallery enroll" stores the photos,
"gallery encode" computes and saves their face embeddings.`,
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored face images",
	RunE:  runGalleryList,
}

var galleryReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Load the gallery and report what the matcher would use",
	Long: `Load the gallery the same way the server does and print a summary.
Records without an encoding and records with malformed encodings are skipped.`,
	RunE: runGalleryReload,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryListCmd)
	galleryCmd.AddCommand(galleryReloadCmd)

	galleryListCmd.Flags().Bool("pending", false, "Only show images without an encoding")
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, closeStore, err := openGalleryStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	images, err := store.ListFaceImages(ctx, mustGetBool(cmd, "pending"))
	if err != nil {
		return fmt.Errorf("failed to list face images: %w", err)
	}
	persons, err := store.CountPersons(ctx)
	if err != nil {
		return fmt.Errorf("failed to count persons: %w", err)
	}

	fmt.Printf("%-6s %-30s %-8s %s\n", "ID", "PERSON", "ENCODED", "IMAGE")
	pending := 0
	for _, img := range images {
		encoded := "yes"
		if !img.HasEncoding {
			encoded = "no"
			pending++
		}
		fmt.Printf("%-6d %-30s %-8s %s\n", img.ID, img.PersonName, encoded, img.ImagePath)
	}
	fmt.Printf("\n%d images, %d without encoding, %d persons\n", len(images), pending, persons)
	return nil
}

func runGalleryReload(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, closeStore, err := openGalleryStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	cache := gallery.NewCache(store, gallery.Options{
		EmbeddingDim:    cfg.Gallery.EmbeddingDim,
		IndexMinGallery: cfg.Pipeline.IndexMinGallery,
		Logger:          slog.Default(),
	})
	snap, err := cache.Load(context.Background())
	if err != nil {
		return err
	}

	names := make([]string, 0, len(snap.Details))
	for name := range snap.Details {
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Printf("Snapshot %s\n", snap.ID)
	fmt.Printf("  Faces:      %d\n", snap.Len())
	fmt.Printf("  Identities: %d\n", snap.Identities())
	fmt.Printf("  Indexed:    %v\n", snap.Indexed())
	for _, name := range names {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

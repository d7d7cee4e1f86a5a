package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/kozaktomas/facecam/internal/config"
	"github.com/kozaktomas/facecam/internal/facedetect"
	"github.com/kozaktomas/facecam/internal/gallery"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var galleryEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Compute face embeddings for enrolled photos",
	Long: `Compute the face embedding of every enrolled photo without one and save it.
Each photo must show exactly the person it is enrolled for; the first face the
detector finds is used. Photos without a face are reported and left pending.`,
	RunE: runGalleryEncode,
}

func init() {
	galleryCmd.AddCommand(galleryEncodeCmd)

	galleryEncodeCmd.Flags().Bool("all", false, "Re-encode photos that already have an encoding")
	galleryEncodeCmd.Flags().String("model", "", "Detection model: hog or cnn (default from DETECTOR_MODEL)")
}

func runGalleryEncode(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if model := mustGetString(cmd, "model"); model != "" {
		cfg.Detector.Model = model
	}

	detector, err := facedetect.New(cfg.Detector)
	if err != nil {
		return fmt.Errorf("creating detector: %w", err)
	}
	defer detector.Close()

	store, closeStore, err := openGalleryStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	all := mustGetBool(cmd, "all")
	pending, err := store.ListFaceImages(ctx, !all)
	if err != nil {
		return fmt.Errorf("failed to list face images: %w", err)
	}
	if len(pending) == 0 {
		fmt.Println("Nothing to encode")
		return nil
	}

	bar := progressbar.NewOptions(len(pending),
		progressbar.OptionSetDescription("Encoding faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	embedder := facedetect.NewStillEmbedder(detector)
	results, err := gallery.Encode(ctx, store, embedder, all, func(gallery.EncodeResult) {
		bar.Add(1)
	})
	bar.Finish()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	var ok, noFace, failed int
	for _, res := range results {
		switch {
		case res.OK():
			ok++
		case errors.Is(res.Err, facedetect.ErrNoFace):
			noFace++
			fmt.Printf("  no face: %s (%s)\n", res.Image.ImagePath, res.Image.PersonName)
		default:
			failed++
			fmt.Printf("  failed:  %v\n", res.Err)
		}
	}

	fmt.Printf("\nEncoded %d of %d photos (%d without a face, %d errors)\n", ok, len(results), noFace, failed)
	if errors.Is(err, context.Canceled) {
		return errors.New("interrupted")
	}
	if noFace+failed > 0 {
		return fmt.Errorf("%d photos could not be encoded", noFace+failed)
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/kozaktomas/facecam/internal/camera"
	"github.com/kozaktomas/facecam/internal/config"
	"github.com/kozaktomas/facecam/internal/facedetect"
	"github.com/kozaktomas/facecam/internal/gallery"
	"github.com/kozaktomas/facecam/internal/pipeline"
	"github.com/kozaktomas/facecam/internal/stream"
	"github.com/kozaktomas/facecam/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recognition server",
	Long: `Start the facecam web server.
The camera is opened when the first viewer requests /video_feed or when
POST /api/v1/camera/acquire is called, and closed again by
POST /api/v1/camera/release or on shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST)")
	serveCmd.Flags().String("device", "", "Camera device or image directory (default from CAMERA_DEVICE)")
	serveCmd.Flags().Duration("replay-interval", 0, "Delay between frames when replaying an image directory")
	serveCmd.Flags().Bool("acquire", false, "Open the camera at startup instead of on first view")
}

// applyServeFlags overrides configuration with explicitly set flags.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if device := mustGetString(cmd, "device"); device != "" {
		cfg.Camera.Device = device
	}
}

// newCameraRegistry opens V4L2 devices, or replays image directories.
func newCameraRegistry(cfg config.CameraConfig, replayInterval time.Duration) *camera.Registry {
	opts := camera.Options{
		Width:       cfg.Width,
		Height:      cfg.Height,
		WaitTimeout: time.Duration(cfg.WaitTimeout) * time.Second,
		Interval:    replayInterval,
	}
	return camera.NewRegistry(func(device string) camera.Source {
		return camera.NewSource(device, opts)
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, closeStore, err := openGalleryStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	cache := gallery.NewCache(store, gallery.Options{
		EmbeddingDim:    cfg.Gallery.EmbeddingDim,
		IndexMinGallery: cfg.Pipeline.IndexMinGallery,
		Logger:          slog.Default(),
	})
	if _, err := cache.Load(ctx); err != nil {
		return fmt.Errorf("loading gallery: %w", err)
	}

	detector, err := facedetect.New(cfg.Detector)
	if err != nil {
		return fmt.Errorf("creating detector: %w", err)
	}
	defer detector.Close()

	cameras := newCameraRegistry(cfg.Camera, mustGetDuration(cmd, "replay-interval"))
	defer cameras.ReleaseAll()

	p, err := pipeline.New(pipeline.Deps{
		Cameras:  cameras,
		Detector: detector,
		Gallery:  cache,
		Encoder:  stream.NewEncoder(cfg.Pipeline.JPEGQuality),
		Logger:   slog.Default(),
	}, pipeline.Options{
		Device:    cfg.Camera.Device,
		Downscale: cfg.Pipeline.Downscale,
		Tolerance: cfg.Pipeline.Tolerance,
	})
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	frames := stream.NewBroadcaster()
	service := pipeline.NewService(p, frames)

	if mustGetBool(cmd, "acquire") {
		if err := service.Acquire(); err != nil {
			return fmt.Errorf("opening camera: %w", err)
		}
	}

	server := web.NewServer(cfg, web.Deps{
		Camera:  service,
		Frames:  frames,
		State:   p.State(),
		Gallery: cache,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		daemon.SdNotify(false, daemon.SdNotifyStopping)

		// Free the device first; open streams end with it.
		if err := service.Release(); err != nil {
			slog.Warn("releasing camera", "error", err)
		}
		frames.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting facecam on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Printf("Camera: %s, detector: %s/%s, gallery: %d faces of %d people\n",
		cfg.Camera.Device, cfg.Detector.Backend, cfg.Detector.Model,
		cache.Snapshot().Len(), cache.Snapshot().Identities())
	fmt.Println("Press Ctrl+C to stop")

	daemon.SdNotify(false, daemon.SdNotifyReady)

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return service.Release()
}

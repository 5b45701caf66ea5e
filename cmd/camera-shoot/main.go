package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fpang/camera-sim/internal/camera"
	"github.com/fpang/camera-sim/internal/cli"
	"github.com/fpang/camera-sim/internal/config"
	"github.com/fpang/camera-sim/internal/logging"
	"github.com/fpang/camera-sim/internal/session"
	"github.com/fpang/camera-sim/internal/studio"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// CLI flags
var (
	countFlag    int
	intervalFlag time.Duration
	lensFlag     string
	pickFlag     bool
	outFlag      string
	saveFlag     bool
	waitFlag     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "camera-shoot",
	Short: "Capture stills headlessly and export the enhanced session",
	Long: `Camera Shoot opens the configured camera, takes a burst of stills with
the simulated camera settings recorded on each, waits for every Gemini
enhancement to finish, and writes the session as a ZIP archive.

Examples:
  camera-shoot --count 3
  camera-shoot --source ffmpeg --device /dev/video0 --lens 50mm --out shots.zip
  camera-shoot --pick --count 1`,
	Args: cobra.NoArgs,
	RunE: runMain,
}

func init() {
	rootCmd.Flags().IntVarP(&countFlag, "count", "n", 1, "Number of stills to capture")
	rootCmd.Flags().DurationVar(&intervalFlag, "interval", 0, "Delay between stills")
	rootCmd.Flags().StringVar(&lensFlag, "lens", string(camera.DefaultLens), "Lens: 16mm, 24mm or 50mm")
	rootCmd.Flags().BoolVar(&pickFlag, "pick", false, "Choose an image to replay with a native file dialog")
	rootCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Export path (default camera-session-<time>.zip)")
	rootCmd.Flags().BoolVar(&saveFlag, "save-dialog", false, "Choose the export path with a native save dialog")
	rootCmd.Flags().DurationVar(&waitFlag, "wait", 5*time.Minute, "How long to wait for enhancements before exporting")
	config.RegisterCaptureFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	initStart := time.Now()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	logging.Init(cfg.LogLevel)

	if countFlag < 1 {
		return fmt.Errorf("--count must be at least 1, got %d", countFlag)
	}
	lens, err := camera.ParseLens(lensFlag)
	if err != nil {
		return err
	}

	if pickFlag {
		path, err := cli.PickStill(false)
		if err != nil {
			return fmt.Errorf("pick source: %w", err)
		}
		cfg.Source, cfg.Device = config.SourceStill, path
	}

	out, err := resolveOutput()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enhancer := cli.InitEnhancer(ctx, cfg)
	surface, err := cli.NewSurface(cfg)
	if err != nil {
		return err
	}
	defer surface.Close()

	if err := surface.Start(ctx); err != nil {
		return fmt.Errorf("%s: %w", camera.DeviceErrorMessage, err)
	}
	if err := surface.SetLens(lens); err != nil {
		return err
	}

	logging.NewStartupLogger("camera-shoot").
		Version(version).
		Device(cfg.Source, cfg.Device).
		Model("enhance", enhancer.Model()).
		Feature("enhancement", enhancer.Available()).
		Config("count", fmt.Sprint(countFlag)).
		Config("lens", string(lens)).
		Config("out", out).
		InitDuration(time.Since(initStart)).
		Log()

	st := studio.New(surface, session.NewStore(), enhancer)
	if err := shoot(ctx, st, countFlag, intervalFlag); err != nil {
		return err
	}

	if st.IsProcessing() {
		fmt.Printf("Waiting for %d enhancement(s)...\n", st.Processing())
	}
	waitCtx, cancel := context.WithTimeout(ctx, waitFlag)
	defer cancel()
	if err := st.Wait(waitCtx); err != nil {
		log.Warn().Err(err).Int("pending", st.Processing()).Msg("Exporting before all enhancements finished")
	}

	images := st.Store().List()
	if err := writeExport(out, images); err != nil {
		return err
	}
	printSummary(images, out)
	return nil
}

// shoot takes count stills, pausing interval between them.
func shoot(ctx context.Context, st *studio.Studio, count int, interval time.Duration) error {
	for i := range count {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
		img, err := st.Capture(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("  [%d/%d] %s  %s %s ISO %d %s\n",
			i+1, count, img.ID, img.Meta.ShutterSpeed, img.Meta.Aperture, img.Meta.ISO, img.Meta.Lens)
	}
	return nil
}

func resolveOutput() (string, error) {
	if outFlag != "" {
		return outFlag, nil
	}
	name := fmt.Sprintf("camera-session-%s.zip", time.Now().Format("20060102-150405"))
	if !saveFlag {
		return name, nil
	}
	path, err := cli.PickSavePath(name)
	if errors.Is(err, cli.ErrPickCanceled) {
		return "", errors.New("export canceled")
	}
	return path, err
}

func writeExport(path string, images []session.CapturedImage) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := session.WriteZip(f, images); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	return nil
}

func printSummary(images []session.CapturedImage, out string) {
	enhanced := 0
	for _, img := range images {
		if img.IsEnhanced() {
			enhanced++
		}
	}
	fmt.Println()
	fmt.Printf("  Captured: %d\n", len(images))
	fmt.Printf("  Enhanced: %d\n", enhanced)
	fmt.Printf("  Export:   %s\n\n", out)
}

package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fpang/camera-sim/internal/cli"
	"github.com/fpang/camera-sim/internal/config"
	"github.com/fpang/camera-sim/internal/logging"
	"github.com/fpang/camera-sim/internal/session"
	"github.com/fpang/camera-sim/internal/studio"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

//go:embed all:frontend_dist
var frontendFS embed.FS

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "camera-web",
	Short: "Simulated mirrorless camera in the browser",
	Long: `Camera Web starts a local web server with a live camera view, a
simulated camera readout, and a gallery of captures that are enhanced with
a Gemini image model in the background.

Examples:
  camera-web
  camera-web --port 9090 --source ffmpeg --device /dev/video0
  camera-web --source still --device ./photos`,
	RunE: runMain,
}

func init() {
	rootCmd.Flags().Int("port", 8080, "Port to listen on")
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

	ctx := context.Background()
	enhancer := cli.InitEnhancer(ctx, cfg)

	surface, err := cli.NewSurface(cfg)
	if err != nil {
		return err
	}
	defer surface.Close()

	// A device failure leaves the surface in the error state; the UI offers a restart.
	if err := surface.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("Camera unavailable at startup")
	}

	srv := newServer(surface, studio.New(surface, session.NewStore(), enhancer))

	logging.NewStartupLogger("camera-web").
		Version(version).
		Device(cfg.Source, cfg.Device).
		Model("enhance", enhancer.Model()).
		Feature("enhancement", enhancer.Available()).
		Feature("validate_key", cfg.ValidateKey).
		Config("port", fmt.Sprint(cfg.Port)).
		Config("sim_interval", cfg.SimInterval().String()).
		InitDuration(time.Since(initStart)).
		Log()

	frontendSub, err := fs.Sub(frontendFS, "frontend_dist")
	if err != nil {
		return fmt.Errorf("failed to access embedded frontend: %w", err)
	}

	mux := srv.routes()
	mux.Handle("/", spaHandler(frontendSub))

	handler := withLogging(withCORS(mux))

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(ctx)
	}()

	log.Info().Int("port", cfg.Port).Msg("Starting web server")
	fmt.Printf("\n  Camera: http://localhost:%d\n\n", cfg.Port)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// spaHandler serves the embedded front end. Unknown paths serve index.html.
func spaHandler(frontend fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(frontend))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Security headers
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' blob: data:; style-src 'self' 'unsafe-inline'; connect-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		path := r.URL.Path
		if path != "/" {
			f, err := frontend.Open(strings.TrimPrefix(path, "/"))
			if err != nil {
				r.URL.Path = "/"
			} else {
				f.Close()
			}
		}
		fileServer.ServeHTTP(w, r)
	})
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		// Preview is polled several times a second.
		if strings.HasPrefix(r.URL.Path, "/api/") && r.URL.Path != "/api/preview" {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only allow localhost origins
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

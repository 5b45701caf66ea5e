package main

import (
	"net/http"

	"github.com/fpang/camera-sim/internal/camera"
	"github.com/fpang/camera-sim/internal/cli"
	"github.com/fpang/camera-sim/internal/studio"
)

// server holds the state behind the HTTP API: one capture surface and the
// studio that stores and enhances its captures.
type server struct {
	surface *camera.Surface
	studio  *studio.Studio

	// pickStill shows the native picker; replaced in tests.
	pickStill func(directory bool) (string, error)
}

func newServer(surface *camera.Surface, st *studio.Studio) *server {
	return &server{
		surface:   surface,
		studio:    st,
		pickStill: cli.PickStill,
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Capture view
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/restart", s.handleRestart)
	mux.HandleFunc("POST /api/lens", s.handleLens)
	mux.HandleFunc("GET /api/preview", s.handlePreview)
	mux.HandleFunc("POST /api/capture", s.handleCapture)
	mux.HandleFunc("POST /api/source/pick", s.handlePickSource)

	// Gallery view
	mux.HandleFunc("GET /api/gallery", s.handleGallery)
	mux.HandleFunc("GET /api/gallery/export", s.handleExport)
	mux.HandleFunc("GET /api/gallery/{id}/{variant}", s.handleGalleryImage)

	return mux
}

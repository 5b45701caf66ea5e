package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fpang/camera-sim/internal/camera"
	"github.com/fpang/camera-sim/internal/cli"
	"github.com/rs/zerolog/log"
)

type statusResponse struct {
	Camera       camera.Status `json:"camera"`
	Count        int           `json:"count"`
	Processing   int           `json:"processing"`
	IsProcessing bool          `json:"isProcessing"`
	Enhancement  bool          `json:"enhancement"`
}

func (s *server) status() statusResponse {
	n := s.studio.Processing()
	return statusResponse{
		Camera:       s.surface.Status(),
		Count:        s.studio.Store().Len(),
		Processing:   n,
		IsProcessing: n > 0,
		Enhancement:  s.studio.EnhancementAvailable(),
	}
}

// GET /api/status
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.status())
}

// POST /api/restart
func (s *server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if err := s.surface.Restart(r.Context()); err != nil {
		log.Warn().Err(err).Msg("Camera restart failed")
		respondJSON(w, http.StatusServiceUnavailable, s.status())
		return
	}
	respondJSON(w, http.StatusOK, s.status())
}

// POST /api/lens {"lens": "50mm"}
func (s *server) handleLens(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lens string `json:"lens"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lens, err := camera.ParseLens(req.Lens)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.surface.SetLens(lens); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.status())
}

// GET /api/preview
func (s *server) handlePreview(w http.ResponseWriter, r *http.Request) {
	p, err := s.surface.Preview(r.Context())
	if err != nil {
		if errors.Is(err, camera.ErrNotReady) {
			httpError(w, http.StatusServiceUnavailable, camera.DeviceErrorMessage)
			return
		}
		log.Warn().Err(err).Msg("Preview failed")
		httpError(w, http.StatusInternalServerError, "preview failed")
		return
	}
	writeImage(w, p.MIMEType, p.Data, "no-store")
}

// POST /api/capture
func (s *server) handleCapture(w http.ResponseWriter, r *http.Request) {
	img, err := s.studio.Capture(r.Context())
	if err != nil {
		if errors.Is(err, camera.ErrNotReady) {
			httpError(w, http.StatusServiceUnavailable, camera.DeviceErrorMessage)
			return
		}
		log.Error().Err(err).Msg("Capture failed")
		httpError(w, http.StatusInternalServerError, "capture failed")
		return
	}
	respondJSON(w, http.StatusOK, newImageView(img))
}

// POST /api/source/pick {"kind": "file" | "directory"}; an empty body picks a file.
func (s *server) handlePickSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	switch req.Kind {
	case "", "file", "directory":
	default:
		httpError(w, http.StatusBadRequest, `kind must be "file" or "directory"`)
		return
	}

	path, err := s.pickStill(req.Kind == "directory")
	if err != nil {
		if errors.Is(err, cli.ErrPickCanceled) {
			respondJSON(w, http.StatusOK, map[string]any{"canceled": true})
			return
		}
		log.Error().Err(err).Msg("Source picker failed")
		httpError(w, http.StatusInternalServerError, "source picker failed")
		return
	}

	log.Info().Str("path", path).Msg("Switching to still source")
	s.surface.SetOpener(camera.NewStillOpener(path))
	status := http.StatusOK
	if err := s.surface.Restart(r.Context()); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Still source failed to open")
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]any{
		"path":   path,
		"status": s.status(),
	})
}

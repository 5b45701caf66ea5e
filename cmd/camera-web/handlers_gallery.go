package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fpang/camera-sim/internal/filehandler"
	"github.com/fpang/camera-sim/internal/session"
	"github.com/rs/zerolog/log"
)

// imageView is a gallery entry without its payloads; images are fetched
// through the URLs.
type imageView struct {
	ID           string       `json:"id"`
	Timestamp    time.Time    `json:"timestamp"`
	Meta         session.Meta `json:"metadata"`
	Enhanced     bool         `json:"enhanced"`
	OriginalURL  string       `json:"originalUrl"`
	EnhancedURL  string       `json:"enhancedUrl,omitempty"`
	ThumbnailURL string       `json:"thumbnailUrl"`
}

func newImageView(img session.CapturedImage) imageView {
	base := "/api/gallery/" + img.ID
	v := imageView{
		ID:           img.ID,
		Timestamp:    img.Timestamp,
		Meta:         img.Meta,
		Enhanced:     img.IsEnhanced(),
		OriginalURL:  base + "/original",
		ThumbnailURL: base + "/thumbnail",
	}
	if v.Enhanced {
		v.EnhancedURL = base + "/enhanced"
	}
	return v
}

// GET /api/gallery
func (s *server) handleGallery(w http.ResponseWriter, r *http.Request) {
	images := s.studio.Store().List()
	views := make([]imageView, 0, len(images))
	for _, img := range images {
		views = append(views, newImageView(img))
	}
	n := s.studio.Processing()
	respondJSON(w, http.StatusOK, map[string]any{
		"images":       views,
		"processing":   n,
		"isProcessing": n > 0,
	})
}

// GET /api/gallery/{id}/{variant}
func (s *server) handleGalleryImage(w http.ResponseWriter, r *http.Request) {
	img, ok := s.studio.Store().Get(r.PathValue("id"))
	if !ok {
		httpError(w, http.StatusNotFound, "image not found")
		return
	}

	// Entries are immutable apart from the one-time enhancement, so a
	// fetched variant never changes.
	const cache = "private, max-age=3600"

	switch r.PathValue("variant") {
	case "original":
		writeImage(w, img.Original.MIMEType, img.Original.Data, cache)
	case "enhanced":
		if img.Enhanced == nil {
			httpError(w, http.StatusNotFound, "image not enhanced")
			return
		}
		writeImage(w, img.Enhanced.MIMEType, img.Enhanced.Data, cache)
	case "thumbnail":
		// The thumbnail follows the displayed image, so it must not be
		// cached past the enhancement.
		src := img.Original
		if img.Enhanced != nil {
			src = *img.Enhanced
		}
		thumb, err := filehandler.GenerateThumbnail(src, filehandler.DefaultThumbnailMaxDimension)
		if err != nil {
			log.Warn().Err(err).Str("id", img.ID).Msg("Failed to generate thumbnail")
			httpError(w, http.StatusInternalServerError, "thumbnail generation failed")
			return
		}
		writeImage(w, thumb.MIMEType, thumb.Data, "no-cache")
	default:
		httpError(w, http.StatusNotFound, "unknown variant")
	}
}

// GET /api/gallery/export
func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("camera-session-%s.zip", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	if err := session.WriteZip(w, s.studio.Store().List()); err != nil {
		// Headers are already sent; the client sees a truncated archive.
		log.Error().Err(err).Msg("Export failed")
	}
}

package main

import (
	"io/fs"
	"net/http"
	"strings"
	"testing"

	"github.com/fpang/camera-sim/internal/camera"
)

func embeddedFrontend(t *testing.T) http.Handler {
	t.Helper()
	sub, err := fs.Sub(frontendFS, "frontend_dist")
	if err != nil {
		t.Fatal(err)
	}
	return spaHandler(sub)
}

func TestSPAServesGalleryView(t *testing.T) {
	h := embeddedFrontend(t)

	tests := []struct {
		path string
		want []string
	}{
		{"/", []string{`id="thumbnails"`, `id="gallery-time"`, `id="gallery-badge"`}},
		{"/gallery/deep-link", []string{`id="capture-view"`, `id="gallery-view"`}},
		{"/app.js", []string{"thumbnailUrl", "enhanced-dot", "isProcessing", "STANDARD PREVIEW", "ALPHA AI HIGH-RES", "img.timestamp"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := do(t, h, http.MethodGet, tt.path, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}
			if rr.Header().Get("X-Frame-Options") != "DENY" {
				t.Error("security headers missing")
			}
			body := rr.Body.String()
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Errorf("%s does not contain %q", tt.path, w)
				}
			}
		})
	}
}

func TestGalleryEntriesCarryThumbnailAndTime(t *testing.T) {
	srv, h := newTestServer(t, camera.NewPatternOpener(64, 36), false)
	if rr := do(t, h, http.MethodPost, "/api/capture", ""); rr.Code != http.StatusOK {
		t.Fatalf("capture: expected 200, got %d", rr.Code)
	}
	waitIdle(t, srv)

	gallery := decode[struct {
		Images       []imageView `json:"images"`
		IsProcessing bool        `json:"isProcessing"`
	}](t, do(t, h, http.MethodGet, "/api/gallery", ""))
	if len(gallery.Images) != 1 {
		t.Fatalf("gallery = %+v", gallery.Images)
	}
	img := gallery.Images[0]
	if img.Timestamp.IsZero() || img.ThumbnailURL == "" {
		t.Errorf("entry = %+v, want timestamp and thumbnail URL", img)
	}
	// Without enhancement the entry stays standard and nothing is processing.
	if img.Enhanced || gallery.IsProcessing {
		t.Errorf("enhanced = %v processing = %v, want both false", img.Enhanced, gallery.IsProcessing)
	}
	rr := do(t, h, http.MethodGet, img.ThumbnailURL, "")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("thumbnail: %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
}

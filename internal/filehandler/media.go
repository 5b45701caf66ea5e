// Package filehandler decodes and encodes still images for the capture
// pipeline: reading source images from disk (with EXIF via imagemeta),
// JPEG encoding at the capture quality, data-URI framing and thumbnails.
package filehandler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// SupportedImageExtensions lists the still formats that can be decoded as
// camera frames, keyed by lower-case extension.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// IsSupportedImage reports whether path has a decodable image extension.
func IsSupportedImage(path string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// MIMETypeFor returns the MIME type for a supported image path, or "".
func MIMETypeFor(path string) string {
	return SupportedImageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ExtensionFor returns the file extension for an image MIME type. Unknown
// types get ".bin".
func ExtensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".bin"
}

// ListImages returns the supported images at path. A file is returned as a
// single-element list; a directory is scanned one level deep, hidden files
// skipped, sorted by name.
func ListImages(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", path, err)
	}

	if !info.IsDir() {
		if !IsSupportedImage(path) {
			return nil, fmt.Errorf("unsupported image format: %s", filepath.Ext(path))
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if IsSupportedImage(e.Name()) {
			images = append(images, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(images)

	log.Debug().Str("dir", path).Int("count", len(images)).Msg("Scanned directory for images")

	if len(images) == 0 {
		return nil, fmt.Errorf("no supported images in %s", path)
	}
	return images, nil
}

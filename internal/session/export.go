package session

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fpang/camera-sim/internal/filehandler"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd uint16 = zstd.ZipMethodWinZip

// ManifestName is the JSON index written first in every export.
const ManifestName = "manifest.json"

// ManifestEntry describes one exported image.
type ManifestEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Meta      Meta      `json:"metadata"`
	Original  string    `json:"original"`
	Enhanced  string    `json:"enhanced,omitempty"`
}

// WriteZip streams images to w as a Zstandard-compressed ZIP: a manifest
// followed by each original and, where present, its enhanced variant.
func WriteZip(w io.Writer, images []CapturedImage) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zipMethodZstd, zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.SpeedBetterCompression)))

	manifest := make([]ManifestEntry, 0, len(images))
	for _, img := range images {
		entry := ManifestEntry{
			ID:        img.ID,
			Timestamp: img.Timestamp,
			Meta:      img.Meta,
			Original:  exportName(img, "original", img.Original.MIMEType),
		}
		if img.Enhanced != nil {
			entry.Enhanced = exportName(img, "enhanced", img.Enhanced.MIMEType)
		}
		manifest = append(manifest, entry)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeEntry(zw, ManifestName, time.Now(), data); err != nil {
		return err
	}

	var total int
	for i, img := range images {
		if err := writeEntry(zw, manifest[i].Original, img.Timestamp, img.Original.Data); err != nil {
			return err
		}
		total++
		if img.Enhanced != nil {
			if err := writeEntry(zw, manifest[i].Enhanced, img.Timestamp, img.Enhanced.Data); err != nil {
				return err
			}
			total++
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close ZIP writer: %w", err)
	}

	log.Info().
		Int("images", len(images)).
		Int("files", total).
		Msg("Session exported")
	return nil
}

func writeEntry(zw *zip.Writer, name string, modified time.Time, data []byte) error {
	header := &zip.FileHeader{
		Name:   name,
		Method: zipMethodZstd,
	}
	header.SetModTime(modified)

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create ZIP entry for %s: %w", name, err)
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("write to ZIP for %s: %w", name, err)
	}
	return nil
}

// exportName builds "20060102-150405_<id>_<variant><ext>".
func exportName(img CapturedImage, variant, mimeType string) string {
	return fmt.Sprintf("%s_%s_%s%s",
		img.Timestamp.UTC().Format("20060102-150405"),
		img.ID,
		variant,
		filehandler.ExtensionFor(mimeType),
	)
}

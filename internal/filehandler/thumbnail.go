package filehandler

import (
	"bytes"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// DefaultThumbnailMaxDimension is the maximum dimension (width or height) for
// gallery thumbnails.
const DefaultThumbnailMaxDimension = 320

// thumbnailQuality is the JPEG quality for thumbnails.
const thumbnailQuality = 80

// GenerateThumbnail decodes p and returns a JPEG no larger than maxDimension
// on either side. Images already within bounds are re-encoded, not upscaled.
func GenerateThumbnail(p Payload, maxDimension int) (Payload, error) {
	img, _, err := image.Decode(bytes.NewReader(p.Data))
	if err != nil {
		return Payload{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	newWidth, newHeight := calculateThumbnailDimensions(bounds.Dx(), bounds.Dy(), maxDimension)

	if newWidth != bounds.Dx() || newHeight != bounds.Dy() {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	thumb, err := EncodeJPEG(img, thumbnailQuality)
	if err != nil {
		return Payload{}, err
	}

	log.Debug().
		Int("orig_width", bounds.Dx()).
		Int("orig_height", bounds.Dy()).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_size", len(thumb.Data)).
		Msg("Thumbnail generated")

	return thumb, nil
}

// calculateThumbnailDimensions calculates new dimensions maintaining aspect ratio.
func calculateThumbnailDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		return maxDimension, max(1, int(float64(height)*float64(maxDimension)/float64(width)))
	}
	return max(1, int(float64(width)*float64(maxDimension)/float64(height))), maxDimension
}

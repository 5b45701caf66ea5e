// Package session holds the in-memory list of captured images for one
// running process, newest first, and the views over it: gallery paging and
// ZIP export. Nothing here touches disk.
package session

import (
	"fmt"
	"time"

	"github.com/fpang/camera-sim/internal/camera"
	"github.com/fpang/camera-sim/internal/filehandler"
	"github.com/google/uuid"
)

// Meta is the camera state recorded when an image was captured.
type Meta struct {
	ISO          int             `json:"iso"`
	ShutterSpeed string          `json:"shutterSpeed"`
	Aperture     string          `json:"aperture"`
	Lens         camera.LensType `json:"lens"`
}

// CapturedImage is one gallery entry. Only Enhanced ever changes after the
// entry is stored, and only from nil to set.
type CapturedImage struct {
	ID        string               `json:"id"`
	Original  filehandler.Payload  `json:"-"`
	Enhanced  *filehandler.Payload `json:"-"`
	Timestamp time.Time            `json:"timestamp"`
	Meta      Meta                 `json:"metadata"`
}

// NewCapturedImage builds an entry from a still with a fresh time-ordered ID.
func NewCapturedImage(still camera.Still) (CapturedImage, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return CapturedImage{}, fmt.Errorf("failed to generate image ID: %w", err)
	}
	ts := still.CapturedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return CapturedImage{
		ID:        id.String(),
		Original:  still.Payload,
		Timestamp: ts,
		Meta: Meta{
			ISO:          still.Settings.ISO,
			ShutterSpeed: still.Settings.ShutterSpeed,
			Aperture:     still.Settings.Aperture,
			Lens:         still.Lens,
		},
	}, nil
}

// IsEnhanced reports whether an enhancement result has been attached.
func (c CapturedImage) IsEnhanced() bool {
	return c.Enhanced != nil
}

// clone copies c so the caller cannot reach the stored Enhanced pointer.
// Payload bytes are shared; they are never written after capture.
func (c CapturedImage) clone() CapturedImage {
	if c.Enhanced != nil {
		e := *c.Enhanced
		c.Enhanced = &e
	}
	return c
}

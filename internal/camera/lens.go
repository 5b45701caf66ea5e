package camera

import (
	"fmt"
	"strings"
)

// LensType is a focal-length class. It only changes the presentational zoom
// of the live view; captured stills are never cropped.
type LensType string

const (
	LensUltraWide LensType = "16mm"
	LensWide      LensType = "24mm"
	LensTelephoto LensType = "50mm"
)

// DefaultLens is the lens selected when a surface is created.
const DefaultLens = LensWide

// Lenses lists the focal-length classes in selector order.
var Lenses = []LensType{LensUltraWide, LensWide, LensTelephoto}

// ParseLens accepts "16mm", "16", or a class name such as "ultra-wide".
func ParseLens(s string) (LensType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "16mm", "16", "ultra-wide", "ultrawide", "ultra_wide":
		return LensUltraWide, nil
	case "24mm", "24", "wide":
		return LensWide, nil
	case "50mm", "50", "telephoto", "tele":
		return LensTelephoto, nil
	}
	return "", fmt.Errorf("unknown lens %q: want one of 16mm, 24mm, 50mm", s)
}

// Valid reports whether l is one of the three classes.
func (l LensType) Valid() bool {
	switch l {
	case LensUltraWide, LensWide, LensTelephoto:
		return true
	}
	return false
}

// Zoom is the scale applied to the live view. Below 1 the frame is shrunk
// inside black borders; above 1 it is a centre crop.
func (l LensType) Zoom() float64 {
	switch l {
	case LensUltraWide:
		return 0.6
	case LensTelephoto:
		return 2
	default:
		return 1
	}
}

// FocalLength returns the millimetre value shown in the OSD.
func (l LensType) FocalLength() int {
	switch l {
	case LensUltraWide:
		return 16
	case LensTelephoto:
		return 50
	default:
		return 24
	}
}

// Class returns the category name: ultra-wide, wide or telephoto.
func (l LensType) Class() string {
	switch l {
	case LensUltraWide:
		return "ultra-wide"
	case LensTelephoto:
		return "telephoto"
	default:
		return "wide"
	}
}

package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
)

var (
	// ErrDeviceUnavailable is returned when a capture device cannot be acquired.
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	// ErrDeviceClosed is returned by Frame after Close.
	ErrDeviceClosed = errors.New("camera device closed")
)

// Constraints describe the video a device is asked for. Zero Width/Height
// means no preference.
type Constraints struct {
	FacingMode string
	Width      int
	Height     int
}

// HighResConstraints is the first acquisition attempt: the rear camera at 4K.
var HighResConstraints = Constraints{FacingMode: "environment", Width: 4096, Height: 2160}

// DefaultConstraints is the fallback attempt: whatever the device offers.
var DefaultConstraints = Constraints{}

// Unconstrained reports whether c expresses no preference at all.
func (c Constraints) Unconstrained() bool {
	return c == Constraints{}
}

func (c Constraints) String() string {
	if c.Unconstrained() {
		return "default"
	}
	return fmt.Sprintf("%dx%d %s", c.Width, c.Height, c.FacingMode)
}

// DeviceInfo describes an acquired device.
type DeviceInfo struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	// Camera is the make/model recorded in a replayed source, when known.
	Camera string `json:"camera,omitempty"`
}

// Device is an acquired video source. Close stops the track and must be
// safe to call more than once.
type Device interface {
	Frame(ctx context.Context) (image.Image, error)
	Info() DeviceInfo
	Close() error
}

// Opener acquires a Device honouring the constraints where it can.
type Opener interface {
	Open(ctx context.Context, c Constraints) (Device, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, c Constraints) (Device, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, c Constraints) (Device, error) {
	return f(ctx, c)
}

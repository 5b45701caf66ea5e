package cli

import (
	"fmt"

	"github.com/fpang/camera-sim/internal/camera"
	"github.com/fpang/camera-sim/internal/config"
)

// NewOpener builds the capture source named by cfg.Source.
func NewOpener(cfg *config.Config) (camera.Opener, error) {
	return OpenerFor(cfg.Source, cfg.Device, cfg.InputFormat)
}

// OpenerFor builds a capture source by kind.
func OpenerFor(source, device, inputFormat string) (camera.Opener, error) {
	switch source {
	case config.SourceFFmpeg:
		if device == "" {
			device = "/dev/video0"
		}
		return camera.NewFFmpegOpener(device, inputFormat), nil
	case config.SourceStill:
		if device == "" {
			return nil, fmt.Errorf("still source needs an image file or directory")
		}
		return camera.NewStillOpener(device), nil
	case config.SourcePattern, "":
		return camera.NewPatternOpener(0, 0), nil
	}
	return nil, fmt.Errorf("unknown capture source %q", source)
}

// NewSurface builds the capture surface described by cfg.
func NewSurface(cfg *config.Config) (*camera.Surface, error) {
	opener, err := NewOpener(cfg)
	if err != nil {
		return nil, err
	}
	return camera.NewSurface(opener, camera.Options{SimulationInterval: cfg.SimInterval()}), nil
}

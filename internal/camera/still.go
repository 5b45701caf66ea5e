package camera

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/fpang/camera-sim/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// StillOpener replays an image file, or every image in a directory in name
// order, as a looping video source.
type StillOpener struct {
	Path string
}

// NewStillOpener returns an opener for path.
func NewStillOpener(path string) *StillOpener {
	return &StillOpener{Path: path}
}

// Open implements Opener. Constraints are ignored; frames keep their
// recorded size.
func (o *StillOpener) Open(_ context.Context, _ Constraints) (Device, error) {
	paths, err := filehandler.ListImages(o.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	first, err := filehandler.DecodeImageFile(paths[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	info := DeviceInfo{
		Kind:   "still",
		Name:   o.Path,
		Width:  first.Bounds().Dx(),
		Height: first.Bounds().Dy(),
	}
	if meta, err := filehandler.ExtractImageMetadata(paths[0]); err == nil {
		info.Camera = meta.Camera()
	} else {
		log.Debug().Err(err).Str("path", paths[0]).Msg("No EXIF in still source")
	}

	log.Info().
		Str("path", o.Path).
		Int("frames", len(paths)).
		Str("camera", info.Camera).
		Msg("Still source opened")

	return &stillDevice{paths: paths, info: info, cached: first}, nil
}

type stillDevice struct {
	mu     sync.Mutex
	paths  []string
	next   int
	info   DeviceInfo
	cached image.Image // first frame; single-image sources never re-decode
	closed bool
}

func (d *stillDevice) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrDeviceClosed
	}
	if len(d.paths) == 1 {
		img := d.cached
		d.mu.Unlock()
		return img, nil
	}
	path := d.paths[d.next]
	d.next = (d.next + 1) % len(d.paths)
	d.mu.Unlock()

	return filehandler.DecodeImageFile(path)
}

func (d *stillDevice) Info() DeviceInfo {
	return d.info
}

func (d *stillDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.cached = nil
	d.mu.Unlock()
	return nil
}

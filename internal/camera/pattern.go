package camera

import (
	"context"
	"image"
	"image/color"
	"sync"
)

// barColors are the SMPTE-style colour bars, left to right.
var barColors = []color.RGBA{
	{192, 192, 192, 255},
	{192, 192, 0, 255},
	{0, 192, 192, 255},
	{0, 192, 0, 255},
	{192, 0, 192, 255},
	{192, 0, 0, 255},
	{0, 0, 192, 255},
}

// PatternOpener produces synthetic colour-bar frames with a sweep line that
// moves one step per frame. Constraints are ignored: the pattern size is fixed.
type PatternOpener struct {
	Width  int
	Height int
}

// NewPatternOpener returns an opener for w×h frames.
func NewPatternOpener(w, h int) *PatternOpener {
	return &PatternOpener{Width: w, Height: h}
}

// Open implements Opener.
func (o *PatternOpener) Open(_ context.Context, _ Constraints) (Device, error) {
	w, h := o.Width, o.Height
	if w <= 0 || h <= 0 {
		w, h = 1280, 720
	}
	return &patternDevice{width: w, height: h}, nil
}

type patternDevice struct {
	mu     sync.Mutex
	width  int
	height int
	frame  int
	closed bool
}

func (d *patternDevice) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrDeviceClosed
	}
	n := d.frame
	d.frame++
	d.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	barWidth := max(1, d.width/len(barColors))
	sweep := (n * max(1, d.width/60)) % d.width
	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			c := barColors[min(x/barWidth, len(barColors)-1)]
			if x == sweep {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

func (d *patternDevice) Info() DeviceInfo {
	return DeviceInfo{Kind: "pattern", Name: "colour bars", Width: d.width, Height: d.height}
}

func (d *patternDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

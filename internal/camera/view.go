package camera

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// maxPreviewWidth caps the live-view raster; previews are for display only.
const maxPreviewWidth = 1280

// renderView scales frame to the preview size and applies the lens zoom.
func renderView(frame image.Image, zoom float64) *image.RGBA {
	b := frame.Bounds()
	outW := min(b.Dx(), maxPreviewWidth)
	outH := max(1, b.Dy()*outW/max(1, b.Dx()))

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	if zoom >= 1 {
		cw := max(1, int(float64(b.Dx())/zoom))
		ch := max(1, int(float64(b.Dy())/zoom))
		x0 := b.Min.X + (b.Dx()-cw)/2
		y0 := b.Min.Y + (b.Dy()-ch)/2
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, image.Rect(x0, y0, x0+cw, y0+ch), draw.Src, nil)
		return dst
	}

	w := max(1, int(float64(outW)*zoom))
	h := max(1, int(float64(outH)*zoom))
	x0 := (outW - w) / 2
	y0 := (outH - h) / 2
	draw.ApproxBiLinear.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), frame, b, draw.Src, nil)
	return dst
}

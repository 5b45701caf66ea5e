package camera

import (
	"image"
	"image/color"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// osdLogicalWidth is the width the overlay is laid out at before being
// scaled to the frame, so text stays legible on 4K frames.
const osdLogicalWidth = 640

var (
	osdWhite  = color.NRGBA{255, 255, 255, 230}
	osdGrey   = color.RGBA{163, 163, 163, 255}
	osdOrange = color.RGBA{249, 115, 22, 255}
	osdBlack  = color.RGBA{0, 0, 0, 255}
	osdShadow = color.NRGBA{0, 0, 0, 140}
)

// OSD is the on-screen readout of a mirrorless camera in manual mode.
type OSD struct {
	Mode      string `json:"mode"`
	Card      string `json:"card"`
	Quality   string `json:"quality"`
	FocusMode string `json:"focusMode"`
	FocusArea string `json:"focusArea"`
	Remaining string `json:"remaining"`
	Battery   int    `json:"battery"`
	Status    string `json:"status"`
	Shutter   string `json:"shutter"`
	Aperture  string `json:"aperture"`
	ISO       int    `json:"iso"`
	FocalMM   int    `json:"focalMm"`
	EV        string `json:"ev"`
}

// NewOSD builds the readout for the given state.
func NewOSD(s Settings, lens LensType, battery int) OSD {
	return OSD{
		Mode:      "M",
		Card:      "NO CARD",
		Quality:   "RAW+J",
		FocusMode: "AF-C",
		FocusArea: "Wide",
		Remaining: "120min",
		Battery:   battery,
		Status:    "STBY",
		Shutter:   s.ShutterSpeed,
		Aperture:  s.Aperture,
		ISO:       s.ISO,
		FocalMM:   lens.FocalLength(),
		EV:        FormatEV(s.EV),
	}
}

// FormatEV renders exposure bias the way the camera shows it: positive
// values carry a plus sign, zero is bare.
func FormatEV(ev float64) string {
	v := strconv.FormatFloat(ev, 'f', -1, 64)
	if ev > 0 {
		v = "+" + v
	}
	return v + " EV"
}

// Draw paints the readout over dst.
func (o OSD) Draw(dst draw.Image) {
	b := dst.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return
	}
	w := osdLogicalWidth
	h := max(1, b.Dy()*w/b.Dx())
	overlay := image.NewRGBA(image.Rect(0, 0, w, h))
	o.layout(overlay)
	draw.NearestNeighbor.Scale(dst, b, overlay, overlay.Bounds(), draw.Over, nil)
}

func (o OSD) layout(dst *image.RGBA) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	const pad = 12
	line := basicfont.Face7x13.Metrics().Height.Ceil() + 2

	// Top left: mode badge, card and quality, focus mode and area.
	x, y := pad, pad+line
	badge := image.Rect(x-2, y-line+3, x+textWidth(o.Mode)+2, y+3)
	fill(dst, badge, osdOrange)
	drawText(dst, x, y, o.Mode, osdBlack)
	drawText(dst, badge.Max.X+6, y, o.Card+" | "+o.Quality, osdWhite)
	drawText(dst, x, y+line, o.FocusMode, osdWhite)
	areaX := x + textWidth(o.FocusMode) + 8
	fill(dst, image.Rect(areaX-2, y+3, areaX+textWidth(o.FocusArea)+2, y+line+3), osdShadow)
	drawText(dst, areaX, y+line, o.FocusArea, osdWhite)

	// Top right: remaining time, battery, standby.
	level := strconv.Itoa(o.Battery) + "%"
	icon := image.Rect(w-pad-24, y-10, w-pad, y)
	stroke(dst, icon, osdWhite)
	fillW := (icon.Dx() - 2) * min(max(o.Battery, 0), 100) / 100
	fill(dst, image.Rect(icon.Min.X+1, icon.Min.Y+1, icon.Min.X+1+fillW, icon.Max.Y-1), osdWhite)
	drawText(dst, icon.Min.X-6-textWidth(level), y, level, osdWhite)
	drawText(dst, icon.Min.X-12-textWidth(level)-textWidth(o.Remaining), y, o.Remaining, osdWhite)
	drawText(dst, w-pad-textWidth(o.Status), y+line, o.Status, osdWhite)

	// Centre: focus frame with corner brackets and a dot.
	side := min(w, h) / 6
	cx, cy := w/2, h/2
	focus := image.Rect(cx-side/2, cy-side/2, cx+side/2, cy+side/2)
	stroke(dst, focus, color.NRGBA{255, 255, 255, 77})
	brackets(dst, focus, 6, osdWhite)
	fill(dst, image.Rect(cx-1, cy-1, cx+2, cy+2), color.NRGBA{255, 255, 255, 128})

	// Bottom left: shutter, aperture, ISO, focal length.
	base := h - pad
	cols := []struct {
		label, value string
		c            color.Color
	}{
		{"SHUTTER", o.Shutter, osdWhite},
		{"F-NO", o.Aperture, osdOrange},
		{"ISO", strconv.Itoa(o.ISO), osdWhite},
		{"MM", strconv.Itoa(o.FocalMM), osdWhite},
	}
	cx = pad
	for _, col := range cols {
		colW := max(textWidth(col.label), textWidth(col.value))
		drawText(dst, cx+(colW-textWidth(col.label))/2, base-line, col.label, osdGrey)
		drawText(dst, cx+(colW-textWidth(col.value))/2, base, col.value, col.c)
		cx += colW + 18
	}

	// Bottom right: exposure bias.
	drawText(dst, w-pad-textWidth(o.EV), base, o.EV, osdGrey)
}

func drawText(dst draw.Image, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Round()
}

func fill(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
}

func stroke(dst draw.Image, r image.Rectangle, c color.Color) {
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), c)
	fill(dst, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), c)
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), c)
	fill(dst, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func brackets(dst draw.Image, r image.Rectangle, n int, c color.Color) {
	for _, p := range []image.Point{r.Min, {r.Max.X - n, r.Min.Y}, {r.Min.X, r.Max.Y - n}, {r.Max.X - n, r.Max.Y - n}} {
		horizY := p.Y
		if p.Y != r.Min.Y {
			horizY = r.Max.Y - 2
		}
		vertX := p.X
		if p.X != r.Min.X {
			vertX = r.Max.X - 2
		}
		fill(dst, image.Rect(p.X, horizY, p.X+n, horizY+2), c)
		fill(dst, image.Rect(vertX, p.Y, vertX+2, p.Y+n), c)
	}
}

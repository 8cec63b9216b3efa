package garment

import "image/color"

var (
	gridColor   = color.RGBA{120, 120, 120, 0xff}
	crossColor  = color.RGBA{59, 180, 246, 0xff}
	markerColor = color.RGBA{59, 130, 246, 0xff}
)

const (
	gridAlpha    = 0.28
	crossAlpha   = 0.8
	markerAlpha  = 0.6
	markerLength = 15
	markerInset  = 10
	dashLength   = 5
)

// grid overlays placement guides: an even line grid, a dashed centre cross
// and corner markers.
func (p *painter) grid(w, h, spacing float64) {
	p.color(gridColor, gridAlpha)
	p.dc.SetLineWidth(0.5)
	for x := 0.0; x <= w; x += spacing {
		p.line(x, 0, x, h)
	}
	for y := 0.0; y <= h; y += spacing {
		p.line(0, y, w, y)
	}

	p.color(crossColor, crossAlpha)
	p.dc.SetLineWidth(1)
	p.dc.SetDash(dashLength, dashLength)
	p.line(w/2, 0, w/2, h)
	p.line(0, h/2, w, h/2)
	p.dc.ClearDash()

	p.color(markerColor, markerAlpha)
	p.dc.SetLineWidth(1.5)
	l, t := float64(markerInset), float64(markerInset)
	r, b := w-markerInset, h-markerInset
	for _, c := range []struct{ x, y, dx, dy float64 }{
		{l, t, 1, 1},
		{r, t, -1, 1},
		{l, b, 1, -1},
		{r, b, -1, -1},
	} {
		p.dc.MoveTo(c.x, c.y+c.dy*markerLength)
		p.dc.LineTo(c.x, c.y)
		p.dc.LineTo(c.x+c.dx*markerLength, c.y)
		p.stroke()
	}
}

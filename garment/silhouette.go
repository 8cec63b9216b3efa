package garment

import (
	"apparel-studio/core"
	"image/color"

	"github.com/gogpu/gg"
)

const sheenAlpha = 0.3

var (
	shadowColor = color.RGBA{0, 0, 0, 0xff}
	labelColor  = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

// neckDepth is the control point height of the neckline curve.
func neckDepth(v core.View) float64 {
	if v == core.ViewBack {
		return 70
	}
	return 80
}

func torsoPath(dc *gg.Context, v core.View) {
	dc.MoveTo(180, 50)
	dc.LineTo(100, 100)
	dc.LineTo(140, 160)
	dc.LineTo(140, 400)
	dc.LineTo(390, 400)
	dc.LineTo(390, 160)
	dc.LineTo(430, 100)
	dc.LineTo(350, 50)
	dc.QuadraticTo(265, neckDepth(v), 180, 50)
	dc.ClosePath()
}

func sleevePath(dc *gg.Context) {
	dc.MoveTo(180, 100)
	dc.LineTo(350, 100)
	dc.LineTo(340, 350)
	dc.LineTo(190, 350)
	dc.ClosePath()
}

// dropShadow approximates a soft shadow offset below the silhouette with a few
// widening translucent passes.
func (p *painter) dropShadow(path func()) {
	p.dc.Push()
	p.dc.Translate(0, 8)
	for _, pass := range []struct{ width, alpha float64 }{{16, 0.04}, {8, 0.07}} {
		path()
		p.color(shadowColor, pass.alpha)
		p.dc.SetLineWidth(pass.width)
		p.stroke()
	}
	path()
	p.color(shadowColor, 0.3)
	p.fill()
	p.dc.Pop()
}

func (p *painter) torso(v core.View, pal palette) {
	dc := p.dc
	p.dropShadow(func() { torsoPath(dc, v) })

	torsoPath(dc, v)
	p.color(pal.base, 1)
	p.fill()

	// Neckline ribbing.
	inner := 100.0
	if v == core.ViewBack {
		inner = 85
	}
	dc.MoveTo(180, 50)
	dc.QuadraticTo(265, neckDepth(v), 350, 50)
	dc.QuadraticTo(265, inner, 180, 60)
	dc.ClosePath()
	p.color(pal.shadow, 1)
	p.fill()

	p.dc.SetLineWidth(1)
	p.line(180, 50, 140, 160)
	p.line(350, 50, 390, 160)

	if v == core.ViewBack {
		dc.DrawRectangle(250, 75, 30, 20)
		p.color(labelColor, 1)
		p.fill()
	}

	grad := gg.NewLinearGradientBrush(265, 90, 265, 400)
	grad.AddColorStop(0, rgba(pal.base, sheenAlpha))
	if v == core.ViewBack {
		grad.AddColorStop(0.3, rgba(pal.highlight, sheenAlpha))
		grad.AddColorStop(0.6, rgba(pal.base, sheenAlpha))
	} else {
		grad.AddColorStop(0.4, rgba(pal.highlight, sheenAlpha))
		grad.AddColorStop(0.7, rgba(pal.base, sheenAlpha))
	}
	grad.AddColorStop(1, rgba(pal.shadow, sheenAlpha))
	torsoPath(dc, v)
	dc.SetFillBrush(grad)
	p.fill()

	dc.MoveTo(190, 60)
	dc.QuadraticTo(265, neckDepth(v)+10, 340, 60)
	p.color(pal.neck, 1)
	dc.SetLineWidth(2)
	p.stroke()

	p.color(pal.shadow, 1)
	dc.SetLineWidth(1.5)
	p.line(100, 100, 140, 160)
	p.line(430, 100, 390, 160)

	dc.SetLineWidth(2)
	p.line(140, 390, 390, 390)
}

func (p *painter) sleeve(v core.View, pal palette) {
	dc := p.dc
	p.dropShadow(func() { sleevePath(dc) })

	sleevePath(dc)
	p.color(pal.base, 1)
	p.fill()

	// Opening at the shoulder.
	dc.MoveTo(180, 100)
	dc.LineTo(350, 100)
	dc.LineTo(340, 115)
	dc.LineTo(190, 115)
	dc.ClosePath()
	p.color(pal.shadow, 1)
	p.fill()

	dc.DrawRectangle(190, 335, 150, 15)
	p.color(pal.shadow, 1)
	p.fill()

	first, last := pal.shadow, pal.highlight
	if v == core.ViewRightArm {
		first, last = last, first
	}
	grad := gg.NewLinearGradientBrush(180, 100, 350, 100)
	grad.AddColorStop(0, rgba(first, sheenAlpha))
	grad.AddColorStop(0.5, rgba(pal.base, sheenAlpha))
	grad.AddColorStop(1, rgba(last, sheenAlpha))
	sleevePath(dc)
	dc.SetFillBrush(grad)
	p.fill()

	p.color(pal.shadow, 1)
	dc.SetLineWidth(1)
	p.line(180, 100, 190, 350)
	p.line(350, 100, 340, 350)
}

func (p *painter) outline(v core.View) {
	if v.IsSleeve() {
		sleevePath(p.dc)
	} else {
		torsoPath(p.dc, v)
	}
	p.color(shadowColor, 0.1)
	p.dc.SetLineWidth(1)
	p.stroke()
}

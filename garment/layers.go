package garment

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

var highlightColor = color.RGBA{0x3b, 0x82, 0xf6, 0xff}

const highlightPad = 2

// layer composites one design element. Elements still decoding or fully
// transparent are skipped.
func (p *painter) layer(l Layer, selected bool, w, h int) {
	if l.Image == nil || l.NaturalSize.W <= 0 || l.NaturalSize.H <= 0 || l.Transform.Scale <= 0 {
		return
	}
	t := l.Transform
	sw, sh := l.NaturalSize.W*t.Scale, l.NaturalSize.H*t.Scale

	if selected {
		p.dc.Push()
		p.dc.Translate(t.Position.X, t.Position.Y)
		p.dc.Rotate(t.Radians())
		p.dc.DrawRectangle(-sw/2-highlightPad, -sh/2-highlightPad, sw+2*highlightPad, sh+2*highlightPad)
		p.color(highlightColor, 1)
		p.dc.SetLineWidth(2)
		p.stroke()
		p.dc.Pop()
	}

	if t.Opacity <= 0 {
		return
	}

	warped := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Transform(warped, placement(l), l.Image, l.Image.Bounds(), xdraw.Over, nil)
	p.dc.DrawImageEx(gg.ImageBufFromImage(warped), gg.DrawImageOptions{
		Opacity:       math.Min(t.Opacity, 1),
		Interpolation: gg.InterpNearest,
		BlendMode:     gg.BlendNormal,
	})
}

// placement maps source pixels to canvas pixels: the image is centred on the
// origin, scaled, rotated, then moved to the layer position.
func placement(l Layer) f64.Aff3 {
	t := l.Transform
	sin, cos := math.Sincos(t.Radians())
	a, b := t.Scale*cos, -t.Scale*sin
	c, d := t.Scale*sin, t.Scale*cos
	hw := float64(l.Image.Bounds().Dx()) / 2
	hh := float64(l.Image.Bounds().Dy()) / 2
	if l.NaturalSize.W > 0 && l.NaturalSize.H > 0 {
		// Stretch decoded pixels to the recorded natural size.
		sx := l.NaturalSize.W / float64(l.Image.Bounds().Dx())
		sy := l.NaturalSize.H / float64(l.Image.Bounds().Dy())
		a, b, c, d = a*sx, b*sy, c*sx, d*sy
	}
	return f64.Aff3{
		a, b, t.Position.X - a*hw - b*hh,
		c, d, t.Position.Y - c*hw - d*hh,
	}
}

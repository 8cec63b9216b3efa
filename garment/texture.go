package garment

import (
	"apparel-studio/core"
	"math/rand/v2"
)

const (
	textureAlpha    = 0.05
	textureStep     = 7
	textureJitter   = 1.5
	verticalStrands = 5
)

type box struct {
	cx, cy, w, h float64
}

func textureBox(v core.View) box {
	if v.IsSleeve() {
		return box{cx: 265, cy: 225, w: 120, h: 200}
	}
	return box{cx: 265, cy: 225, w: 180, h: 130}
}

// texture draws faint wavy threads across b. The jitter source is seeded per
// view so identical frames produce identical pixels.
func (p *painter) texture(b box, pal palette, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, uint64(b.w)<<16|uint64(b.h)))
	jitter := func() float64 { return rng.Float64()*2*textureJitter - textureJitter }

	left, top := b.cx-b.w/2, b.cy-b.h/2
	right, bottom := left+b.w, top+b.h

	p.color(pal.texture, textureAlpha)
	p.dc.SetLineWidth(0.5)

	for y := top; y <= bottom; y += textureStep {
		p.dc.MoveTo(left, y)
		p.dc.CubicTo(left+b.w/3, y+jitter(), left+2*b.w/3, y+jitter(), right, y)
		p.stroke()
	}

	for i := 0; i < verticalStrands; i++ {
		x := left + rng.Float64()*b.w
		p.dc.MoveTo(x, top)
		p.dc.CubicTo(x+jitter(), top+b.h/3, x+jitter(), top+2*b.h/3, x, bottom)
		p.stroke()
	}
}

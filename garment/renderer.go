// Package garment procedurally paints a garment template for one view and
// composites the design layers placed on it.
package garment

import (
	"apparel-studio/core"
	"apparel-studio/shade"
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gg"
)

const (
	DefaultWidth       = 530
	DefaultHeight      = 450
	DefaultGridSpacing = 20
)

type (
	// Options configures the raster surface.
	Options struct {
		Width       int
		Height      int
		GridSpacing float64
		// TextureSeed feeds the fabric jitter. A fixed seed keeps repeated
		// renders of the same frame identical.
		TextureSeed uint64
	}

	// Layer is one design element as seen by the renderer. Image is nil while
	// the upload is still decoding; such layers are skipped.
	Layer struct {
		ID          string
		Image       *image.RGBA
		NaturalSize core.Size
		Transform   core.Transform
	}

	// Frame is everything needed to draw one view.
	Frame struct {
		View        core.View
		BaseColor   color.RGBA
		Layers      []Layer
		SelectedID  string
		GridVisible bool
	}

	Renderer struct {
		opts Options
	}
)

func DefaultOptions() Options {
	return Options{
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		GridSpacing: DefaultGridSpacing,
		TextureSeed: 0x5eed,
	}
}

func NewRenderer(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.GridSpacing <= 0 {
		opts.GridSpacing = def.GridSpacing
	}
	if opts.TextureSeed == 0 {
		opts.TextureSeed = def.TextureSeed
	}
	return &Renderer{opts: opts}
}

func (r *Renderer) Size() (int, int) {
	return r.opts.Width, r.opts.Height
}

// Render paints f onto a fresh surface. It has no side effects, so callers may
// redraw from a snapshot as often as they like.
func (r *Renderer) Render(f Frame) (*image.RGBA, error) {
	dc := gg.NewContext(r.opts.Width, r.opts.Height)
	defer dc.Close()
	dc.Clear()

	p := &painter{dc: dc}
	base := f.BaseColor
	base.A = 0xff
	pal := newPalette(base)

	switch f.View {
	case core.ViewFront, core.ViewBack:
		p.torso(f.View, pal)
	case core.ViewLeftArm, core.ViewRightArm:
		p.sleeve(f.View, pal)
	default:
		return nil, fmt.Errorf("render: unknown view %q", f.View)
	}
	p.texture(textureBox(f.View), pal, r.opts.TextureSeed)
	p.outline(f.View)

	if f.GridVisible {
		p.grid(float64(r.opts.Width), float64(r.opts.Height), r.opts.GridSpacing)
	}

	for _, l := range f.Layers {
		p.layer(l, l.ID != "" && l.ID == f.SelectedID, r.opts.Width, r.opts.Height)
	}

	if p.err != nil {
		return nil, fmt.Errorf("render %s: %w", f.View, p.err)
	}
	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("render %s: unexpected surface type %T", f.View, dc.Image())
	}
	return img, nil
}

// palette holds the accent colours derived from the base colour.
type palette struct {
	base      color.RGBA
	highlight color.RGBA
	shadow    color.RGBA
	neck      color.RGBA
	texture   color.RGBA
}

func newPalette(base color.RGBA) palette {
	p := palette{
		base:      base,
		highlight: shade.Shade(base, 20),
		shadow:    shade.Shade(base, -20),
		neck:      shade.Shade(base, -20),
		texture:   color.RGBA{0, 0, 0, 0xff},
	}
	if shade.IsDark(base) {
		p.neck = shade.Shade(base, 10)
		p.texture = color.RGBA{0xff, 0xff, 0xff, 0xff}
	}
	return p
}

// painter records the first drawing error so the drawing code can stay linear.
type painter struct {
	dc  *gg.Context
	err error
}

func (p *painter) fill() {
	if err := p.dc.Fill(); err != nil && p.err == nil {
		p.err = err
	}
}

func (p *painter) stroke() {
	if err := p.dc.Stroke(); err != nil && p.err == nil {
		p.err = err
	}
}

func (p *painter) color(c color.RGBA, alpha float64) {
	p.dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, alpha)
}

func (p *painter) line(x1, y1, x2, y2 float64) {
	p.dc.MoveTo(x1, y1)
	p.dc.LineTo(x2, y2)
	p.stroke()
}

func rgba(c color.RGBA, alpha float64) gg.RGBA {
	return gg.RGBA{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255, A: alpha}
}

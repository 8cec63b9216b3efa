package main

import (
	"apparel-studio/core"
	"apparel-studio/editor"
	"image"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
)

// garmentCanvas shows the rendered garment and feeds mouse input to the
// session's interaction controller.
type garmentCanvas struct {
	widget.BaseWidget

	raster *fynecanvas.Raster
	width  int
	height int

	mu      sync.Mutex
	session *editor.Session
	frame   *image.RGBA
	pressed bool
}

var (
	_ desktop.Mouseable = (*garmentCanvas)(nil)
	_ desktop.Hoverable = (*garmentCanvas)(nil)
)

func newGarmentCanvas(width, height int) *garmentCanvas {
	gc := &garmentCanvas{width: width, height: height}
	gc.raster = fynecanvas.NewRaster(gc.draw)
	gc.raster.ScaleMode = fynecanvas.ImageScaleSmooth
	gc.raster.SetMinSize(fyne.NewSize(float32(width), float32(height)))
	gc.ExtendBaseWidget(gc)
	return gc
}

func (gc *garmentCanvas) setSession(s *editor.Session) {
	gc.mu.Lock()
	gc.session = s
	gc.pressed = false
	gc.mu.Unlock()
	gc.redraw()
}

// redraw renders the session and schedules a repaint.
func (gc *garmentCanvas) redraw() {
	gc.mu.Lock()
	s := gc.session
	gc.mu.Unlock()
	if s == nil {
		return
	}
	img, err := s.Render()
	if err != nil {
		logrus.WithError(err).Error("Failed to render garment")
		return
	}
	gc.mu.Lock()
	gc.frame = img
	gc.mu.Unlock()
	gc.raster.Refresh()
}

func (gc *garmentCanvas) draw(w, h int) image.Image {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	if gc.frame == nil {
		return image.NewRGBA(image.Rect(0, 0, gc.width, gc.height))
	}
	return gc.frame
}

// toCanvas maps a widget position onto canvas pixel coordinates.
func (gc *garmentCanvas) toCanvas(pos fyne.Position) core.Point {
	size := gc.Size()
	if size.Width <= 0 || size.Height <= 0 {
		return core.Point{X: float64(pos.X), Y: float64(pos.Y)}
	}
	return core.Point{
		X: float64(pos.X) * float64(gc.width) / float64(size.Width),
		Y: float64(pos.Y) * float64(gc.height) / float64(size.Height),
	}
}

func (gc *garmentCanvas) current() *editor.Session {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.session
}

func (gc *garmentCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	s := gc.current()
	if s == nil {
		return
	}
	gc.mu.Lock()
	gc.pressed = true
	gc.mu.Unlock()
	s.PointerDown(gc.toCanvas(ev.Position))
}

func (gc *garmentCanvas) MouseUp(ev *desktop.MouseEvent) {
	s := gc.current()
	if s == nil {
		return
	}
	gc.mu.Lock()
	gc.pressed = false
	gc.mu.Unlock()
	s.PointerUp()
}

func (gc *garmentCanvas) MouseIn(ev *desktop.MouseEvent) {}

func (gc *garmentCanvas) MouseMoved(ev *desktop.MouseEvent) {
	gc.mu.Lock()
	s, pressed := gc.session, gc.pressed
	gc.mu.Unlock()
	if s == nil || !pressed {
		return
	}
	s.PointerMove(gc.toCanvas(ev.Position))
}

func (gc *garmentCanvas) MouseOut() {
	s := gc.current()
	if s == nil {
		return
	}
	gc.mu.Lock()
	gc.pressed = false
	gc.mu.Unlock()
	s.PointerLeave()
}

func (gc *garmentCanvas) MinSize() fyne.Size {
	return gc.raster.MinSize()
}

func (gc *garmentCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(gc.raster)
}

package editor

import (
	"apparel-studio/core"
	"math"

	"github.com/sirupsen/logrus"
)

// Phase is the pointer interaction state.
type Phase int

const (
	Idle Phase = iota
	Selected
	Dragging
)

func (p Phase) String() string {
	switch p {
	case Selected:
		return "selected"
	case Dragging:
		return "dragging"
	default:
		return "idle"
	}
}

// dragSession exists between a pointer-down hit and the matching up/leave.
// grab is the offset from the pointer to the layer centre at pointer-down.
type dragSession struct {
	id   string
	grab core.Point
}

func (s *Session) phase() Phase {
	switch {
	case s.drag.id != "":
		return Dragging
	case s.store.Selected(s.activeView) != "":
		return Selected
	default:
		return Idle
	}
}

// HitTest returns the topmost element whose box contains p. The pointer is
// rotated into the element's local frame first, so rotated layers are hit
// where they are drawn.
func HitTest(elems []Element, p core.Point) (Element, bool) {
	for i := len(elems) - 1; i >= 0; i-- {
		if Contains(elems[i], p) {
			return elems[i], true
		}
	}
	return Element{}, false
}

// Contains reports whether p falls inside e's scaled, rotated box.
func Contains(e Element, p core.Point) bool {
	size := e.NaturalSize()
	t := e.Transform
	hw, hh := size.W*t.Scale/2, size.H*t.Scale/2
	dx, dy := p.X-t.Position.X, p.Y-t.Position.Y
	sin, cos := math.Sincos(t.Radians())
	lx := dx*cos + dy*sin
	ly := -dx*sin + dy*cos
	const eps = 1e-9
	return math.Abs(lx) <= hw+eps && math.Abs(ly) <= hh+eps
}

// PointerDown selects the topmost layer under p and starts dragging it. A miss
// clears the selection.
func (s *Session) PointerDown(p core.Point) bool {
	return s.update(func() bool {
		before, phase := s.store.Selected(s.activeView), s.phase()
		hit, ok := HitTest(s.store.Elements(s.activeView), p)
		if !ok {
			s.drag = dragSession{}
			s.store.ClearSelection()
			return before != "" || phase != Idle
		}
		s.store.Select(s.activeView, hit.ID)
		s.drag = dragSession{
			id:   hit.ID,
			grab: core.Point{X: hit.Transform.Position.X - p.X, Y: hit.Transform.Position.Y - p.Y},
		}
		s.log.WithFields(logrus.Fields{
			"view":     s.activeView,
			"layer_id": hit.ID,
		}).Debug("Drag started")
		return true
	})
}

// PointerMove moves the dragged layer so that it keeps the offset it had to
// the pointer at pointer-down.
func (s *Session) PointerMove(p core.Point) bool {
	return s.update(func() bool {
		if s.drag.id == "" {
			return false
		}
		pos := core.Point{X: p.X + s.drag.grab.X, Y: p.Y + s.drag.grab.Y}
		return s.store.Update(s.activeView, s.drag.id, Patch{Position: &pos})
	})
}

// PointerUp ends a drag; the layer stays selected.
func (s *Session) PointerUp() bool {
	return s.endDrag()
}

// PointerLeave ends a drag like PointerUp.
func (s *Session) PointerLeave() bool {
	return s.endDrag()
}

func (s *Session) endDrag() bool {
	return s.update(func() bool {
		if s.drag.id == "" {
			return false
		}
		s.drag = dragSession{}
		return true
	})
}

// SetView switches the active view. Selection and any drag are dropped so
// they are never applied to another view's layers.
func (s *Session) SetView(v core.View) bool {
	return s.update(func() bool {
		if v == s.activeView {
			return false
		}
		s.activeView = v
		s.drag = dragSession{}
		s.store.ClearSelection()
		return true
	})
}

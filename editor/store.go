package editor

import (
	"apparel-studio/core"
	"apparel-studio/imaging"
	"crypto/rand"
	"io"
	"math"
	"time"

	"github.com/oklog/ulid/v2"
)

// MaxScale is the largest accepted layer scale.
const MaxScale = 2.0

type (
	// Element is one placed design layer.
	Element struct {
		ID        string
		Name      string
		Image     *imaging.Handle
		Transform core.Transform
	}

	// Patch carries the transform fields to merge into an element.
	Patch struct {
		Position *core.Point
		Scale    *float64
		Rotation *float64
		Opacity  *float64
	}

	// Store owns the ordered layers of every view plus the current selection.
	// Order is paint order: later elements are drawn on top. Store is not safe
	// for concurrent use; Session serialises access.
	Store struct {
		center   core.Point
		views    map[core.View][]Element
		entropy  io.Reader
		selected selection
	}

	selection struct {
		view core.View
		id   string
	}
)

// NaturalSize is the intrinsic size of the element's image.
func (e Element) NaturalSize() core.Size {
	if e.Image == nil {
		return core.Size{}
	}
	return e.Image.NaturalSize()
}

// Record serializes the element for export metadata.
func (e Element) Record() core.DesignRecord {
	return e.Transform.Record(e.Name)
}

// NewStore creates an empty store whose default layer position is center.
func NewStore(center core.Point) *Store {
	return &Store{
		center:  center,
		views:   make(map[core.View][]Element),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Center is the default position of new and reset layers.
func (s *Store) Center() core.Point {
	return s.center
}

// newID allocates a lexically increasing id that is never handed out twice.
func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// Add appends a layer with the default transform and selects it.
func (s *Store) Add(v core.View, img *imaging.Handle, name string) string {
	e := Element{
		ID:        s.newID(),
		Name:      name,
		Image:     img,
		Transform: core.DefaultTransform(s.center),
	}
	s.views[v] = append(s.views[v], e)
	s.selected = selection{view: v, id: e.ID}
	return e.ID
}

// Remove deletes the layer and clears the selection if it pointed at it.
func (s *Store) Remove(v core.View, id string) bool {
	elems := s.views[v]
	for i, e := range elems {
		if e.ID != id {
			continue
		}
		next := make([]Element, 0, len(elems)-1)
		next = append(next, elems[:i]...)
		s.views[v] = append(next, elems[i+1:]...)
		if s.selected.view == v && s.selected.id == id {
			s.selected = selection{}
		}
		return true
	}
	return false
}

// Update merges p into the layer. Scale above MaxScale and opacity outside
// [0,1] are clamped, rotation is normalised into [0,360). Non-positive or NaN
// values are ignored so the transform invariants always hold.
func (s *Store) Update(v core.View, id string, p Patch) bool {
	i := s.index(v, id)
	if i < 0 {
		return false
	}
	t := s.views[v][i].Transform
	changed := false

	if p.Position != nil && isFinite(p.Position.X) && isFinite(p.Position.Y) && *p.Position != t.Position {
		t.Position = *p.Position
		changed = true
	}
	if p.Scale != nil && isFinite(*p.Scale) && *p.Scale > 0 {
		if sc := math.Min(*p.Scale, MaxScale); sc != t.Scale {
			t.Scale = sc
			changed = true
		}
	}
	if p.Rotation != nil && isFinite(*p.Rotation) {
		if r := core.NormalizeRotation(*p.Rotation); r != t.Rotation {
			t.Rotation = r
			changed = true
		}
	}
	if p.Opacity != nil && !math.IsNaN(*p.Opacity) {
		if o := math.Max(0, math.Min(1, *p.Opacity)); o != t.Opacity {
			t.Opacity = o
			changed = true
		}
	}
	if changed {
		s.replace(v, i, t)
	}
	return changed
}

// Reset restores the default transform, keeping id, image and name.
func (s *Store) Reset(v core.View, id string) bool {
	i := s.index(v, id)
	if i < 0 {
		return false
	}
	def := core.DefaultTransform(s.center)
	if s.views[v][i].Transform == def {
		return false
	}
	s.replace(v, i, def)
	return true
}

// replace swaps in a modified element on a fresh slice so snapshots taken
// earlier keep their values.
func (s *Store) replace(v core.View, i int, t core.Transform) {
	elems := make([]Element, len(s.views[v]))
	copy(elems, s.views[v])
	elems[i].Transform = t
	s.views[v] = elems
}

func (s *Store) index(v core.View, id string) int {
	for i, e := range s.views[v] {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the layer with id in view v.
func (s *Store) Find(v core.View, id string) (Element, bool) {
	if i := s.index(v, id); i >= 0 {
		return s.views[v][i], true
	}
	return Element{}, false
}

// Elements returns the layers of v in paint order. The slice must not be modified.
func (s *Store) Elements(v core.View) []Element {
	return s.views[v]
}

// Select marks id in v as the single selection.
func (s *Store) Select(v core.View, id string) {
	s.selected = selection{view: v, id: id}
}

func (s *Store) ClearSelection() {
	s.selected = selection{}
}

// Selected returns the selected id if it belongs to view v.
func (s *Store) Selected(v core.View) string {
	if s.selected.view != v {
		return ""
	}
	return s.selected.id
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Package editor holds the live state of a garment design session: the
// layers of each view, the selection, the pointer interaction state machine
// and the transform setters. Every change produces a new immutable Snapshot
// and notifies observers exactly once.
package editor

import (
	"apparel-studio/core"
	"apparel-studio/garment"
	"apparel-studio/imaging"
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("session not found")

type (
	// Config seeds a new session.
	Config struct {
		Center     core.Point
		BaseColor  color.RGBA
		ActiveView core.View
	}

	// Snapshot is an immutable copy of the session state.
	Snapshot struct {
		Revision    uint64
		BaseColor   color.RGBA
		ActiveView  core.View
		GridVisible bool
		SelectedID  string
		Phase       Phase
		views       map[core.View][]Element
	}

	Session struct {
		id       string
		renderer *garment.Renderer
		log      *logrus.Entry

		mu          sync.Mutex
		store       *Store
		baseColor   color.RGBA
		activeView  core.View
		gridVisible bool
		drag        dragSession
		revision    uint64
		snap        Snapshot
		observers   []observer
		nextObs     int
	}

	observer struct {
		id int
		fn func(Snapshot)
	}
)

// DefaultConfig centres layers on a canvas of the renderer's default size.
func DefaultConfig() Config {
	return Config{
		Center:     core.Point{X: 265, Y: 220},
		BaseColor:  color.RGBA{0xff, 0xff, 0xff, 0xff},
		ActiveView: core.ViewFront,
	}
}

func NewSession(id string, cfg Config, renderer *garment.Renderer) *Session {
	if cfg.ActiveView == "" {
		cfg.ActiveView = core.ViewFront
	}
	if cfg.BaseColor.A == 0 {
		cfg.BaseColor = DefaultConfig().BaseColor
	}
	s := &Session{
		id:         id,
		renderer:   renderer,
		log:        logrus.WithField("session_id", id),
		store:      NewStore(cfg.Center),
		baseColor:  cfg.BaseColor,
		activeView: cfg.ActiveView,
	}
	s.snap = s.buildSnapshot()
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Render draws the active view from the current snapshot.
func (s *Session) Render() (*image.RGBA, error) {
	return s.renderer.Render(s.Snapshot().Frame())
}

// Renderer is the renderer the session draws with.
func (s *Session) Renderer() *garment.Renderer {
	return s.renderer
}

// OnChange registers fn to receive every new snapshot. The returned func
// unsubscribes it.
func (s *Session) OnChange(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextObs++
	id := s.nextObs
	s.observers = append(s.observers, observer{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, o := range s.observers {
				if o.id == id {
					s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Close drops all observers. Later changes are still applied but nobody is
// notified.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = nil
}

// update runs fn under the lock. When fn reports a change the revision is
// bumped and observers are notified once, outside the lock.
func (s *Session) update(fn func() bool) bool {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return false
	}
	s.revision++
	s.snap = s.buildSnapshot()
	snap := s.snap
	obs := make([]observer, len(s.observers))
	copy(obs, s.observers)
	s.mu.Unlock()

	for _, o := range obs {
		o.fn(snap)
	}
	return true
}

func (s *Session) buildSnapshot() Snapshot {
	views := make(map[core.View][]Element, len(core.Views))
	for _, v := range core.Views {
		if elems := s.store.Elements(v); len(elems) > 0 {
			views[v] = elems
		}
	}
	return Snapshot{
		Revision:    s.revision,
		BaseColor:   s.baseColor,
		ActiveView:  s.activeView,
		GridVisible: s.gridVisible,
		SelectedID:  s.store.Selected(s.activeView),
		Phase:       s.phase(),
		views:       views,
	}
}

// SetColor changes the garment base colour.
func (s *Session) SetColor(c color.RGBA) bool {
	c.A = 0xff
	return s.update(func() bool {
		if s.baseColor == c {
			return false
		}
		s.baseColor = c
		return true
	})
}

func (s *Session) SetGridVisible(visible bool) bool {
	return s.update(func() bool {
		if s.gridVisible == visible {
			return false
		}
		s.gridVisible = visible
		return true
	})
}

// AddLayer places an image on the active view and selects it. The session
// redraws again once the image finishes decoding.
func (s *Session) AddLayer(img *imaging.Handle, name string) string {
	var id string
	var view core.View
	s.update(func() bool {
		view = s.activeView
		s.drag = dragSession{}
		id = s.store.Add(view, img, name)
		return true
	})
	s.log.WithFields(logrus.Fields{
		"view":     view,
		"layer_id": id,
		"name":     name,
	}).Info("Layer added")

	s.watch(view, id, img)
	return id
}

// watch triggers a redraw once img finishes decoding, if the layer still exists.
func (s *Session) watch(v core.View, id string, img *imaging.Handle) {
	go func() {
		<-img.Done()
		s.update(func() bool {
			_, ok := s.store.Find(v, id)
			return ok
		})
	}()
}

// AddUpload decodes data and adds it as a layer. Decode errors leave the
// session untouched.
func (s *Session) AddUpload(data []byte, name string) (string, error) {
	img, err := imaging.Decode(data, name)
	if err != nil {
		s.log.WithError(err).WithField("name", name).Warn("Rejected upload")
		return "", err
	}
	return s.AddLayer(img, name), nil
}

// Elements returns a copy of the layers of v in paint order.
func (s Snapshot) Elements(v core.View) []Element {
	elems := s.views[v]
	out := make([]Element, len(elems))
	copy(out, elems)
	return out
}

// Populated reports whether v has at least one layer.
func (s Snapshot) Populated(v core.View) bool {
	return len(s.views[v]) > 0
}

// Records serializes the layers of v.
func (s Snapshot) Records(v core.View) []core.DesignRecord {
	elems := s.views[v]
	records := make([]core.DesignRecord, 0, len(elems))
	for _, e := range elems {
		records = append(records, e.Record())
	}
	return records
}

// Clean drops the overlays that must not appear in exported images.
func (s Snapshot) Clean() Snapshot {
	s.GridVisible = false
	s.SelectedID = ""
	return s
}

// WithView points the snapshot at another view. The selection belongs to the
// original view and is dropped.
func (s Snapshot) WithView(v core.View) Snapshot {
	if v != s.ActiveView {
		s.SelectedID = ""
	}
	s.ActiveView = v
	return s
}

// Frame converts the active view to renderer input. Layers still decoding are
// handed over without pixels.
func (s Snapshot) Frame() garment.Frame {
	elems := s.views[s.ActiveView]
	layers := make([]garment.Layer, 0, len(elems))
	for _, e := range elems {
		l := garment.Layer{
			ID:          e.ID,
			NaturalSize: e.NaturalSize(),
			Transform:   e.Transform,
		}
		if e.Image != nil {
			l.Image = e.Image.Image()
		}
		layers = append(layers, l)
	}
	return garment.Frame{
		View:        s.ActiveView,
		BaseColor:   s.BaseColor,
		Layers:      layers,
		SelectedID:  s.SelectedID,
		GridVisible: s.GridVisible,
	}
}

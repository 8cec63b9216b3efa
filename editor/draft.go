package editor

import (
	"apparel-studio/core"
	"apparel-studio/imaging"
	"apparel-studio/shade"
	"bytes"
	"fmt"
	"image/png"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type (
	// DraftPayload is the persisted form of a session.
	DraftPayload struct {
		Color       string                     `json:"color"`
		ActiveView  core.View                  `json:"activeView"`
		GridVisible bool                       `json:"gridVisible"`
		Views       map[core.View][]DraftLayer `json:"views"`
	}

	// DraftLayer keeps the source image next to the placement so a restored
	// session can decode it again.
	DraftLayer struct {
		core.DesignRecord
		Image []byte `json:"image"`
	}
)

// Draft serializes the session. Layers whose pixels are not available are
// left out.
func (s *Session) Draft() DraftPayload {
	snap := s.Snapshot()
	d := DraftPayload{
		Color:       shade.Hex(snap.BaseColor),
		ActiveView:  snap.ActiveView,
		GridVisible: snap.GridVisible,
		Views:       make(map[core.View][]DraftLayer),
	}
	for _, v := range core.Views {
		for _, e := range snap.Elements(v) {
			data, err := sourceBytes(e)
			if err != nil {
				s.log.WithError(err).WithField("layer_id", e.ID).Warn("Skipping layer in draft")
				continue
			}
			d.Views[v] = append(d.Views[v], DraftLayer{DesignRecord: e.Record(), Image: data})
		}
	}
	return d
}

func sourceBytes(e Element) ([]byte, error) {
	if e.Image == nil {
		return nil, fmt.Errorf("layer %s has no image", e.ID)
	}
	if src := e.Image.Source(); len(src) > 0 {
		return src, nil
	}
	img := e.Image.Image()
	if img == nil {
		return nil, fmt.Errorf("layer %s is not decoded", e.ID)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Restore creates a live session from a draft. Layers that fail to decode are
// dropped; the rest keep their order and placement.
func (r *Registry) Restore(d DraftPayload) (*Session, error) {
	cfg := r.defaults
	if d.Color != "" {
		c, err := shade.ParseHex(d.Color)
		if err != nil {
			return nil, err
		}
		cfg.BaseColor = c
	}
	if d.ActiveView != "" {
		v, err := core.ParseView(string(d.ActiveView))
		if err != nil {
			return nil, err
		}
		cfg.ActiveView = v
	}

	s := NewSession(ulid.Make().String(), cfg, r.renderer)
	s.update(func() bool {
		s.gridVisible = d.GridVisible
		for _, v := range core.Views {
			for _, l := range d.Views[v] {
				img, err := imaging.Decode(l.Image, l.Name)
				if err != nil {
					s.log.WithError(err).WithFields(logrus.Fields{
						"view": v,
						"name": l.Name,
					}).Warn("Dropping undecodable draft layer")
					continue
				}
				id := s.store.Add(v, img, l.Name)
				t := l.DesignRecord.Transform()
				s.store.Update(v, id, Patch{Position: &t.Position, Scale: &t.Scale, Rotation: &t.Rotation, Opacity: &t.Opacity})
				s.watch(v, id, img)
			}
		}
		s.store.ClearSelection()
		return true
	})
	r.add(s)
	return s, nil
}

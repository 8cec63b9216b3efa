package editor

// The setters below act on the selected layer of the active view and do
// nothing when there is no selection.

func (s *Session) SetScale(v float64) bool {
	return s.patchSelected(Patch{Scale: &v})
}

func (s *Session) SetRotation(deg float64) bool {
	return s.patchSelected(Patch{Rotation: &deg})
}

func (s *Session) SetOpacity(a float64) bool {
	return s.patchSelected(Patch{Opacity: &a})
}

// Apply merges several fields at once, producing a single redraw.
func (s *Session) Apply(p Patch) bool {
	return s.patchSelected(p)
}

func (s *Session) patchSelected(p Patch) bool {
	return s.update(func() bool {
		id := s.store.Selected(s.activeView)
		if id == "" {
			return false
		}
		return s.store.Update(s.activeView, id, p)
	})
}

// ResetSelected restores the default transform of the selected layer.
func (s *Session) ResetSelected() bool {
	return s.update(func() bool {
		id := s.store.Selected(s.activeView)
		if id == "" {
			return false
		}
		return s.store.Reset(s.activeView, id)
	})
}

// RemoveSelected deletes the selected layer.
func (s *Session) RemoveSelected() bool {
	return s.update(func() bool {
		id := s.store.Selected(s.activeView)
		if id == "" {
			return false
		}
		if s.drag.id == id {
			s.drag = dragSession{}
		}
		removed := s.store.Remove(s.activeView, id)
		if removed {
			s.log.WithField("layer_id", id).Info("Layer removed")
		}
		return removed
	})
}

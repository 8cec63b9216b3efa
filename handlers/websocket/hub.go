package websocket

import (
	"apparel-studio/core"
	"apparel-studio/editor"
	"apparel-studio/shade"
	"sync"

	"github.com/sirupsen/logrus"
)

// Update is pushed to every viewer of a session after each change.
type Update struct {
	SessionID   string    `json:"sessionId"`
	Revision    uint64    `json:"revision"`
	Color       string    `json:"color"`
	ActiveView  core.View `json:"activeView"`
	GridVisible bool      `json:"gridVisible"`
	SelectedID  string    `json:"selectedId,omitempty"`
	Phase       string    `json:"phase"`
	Layers      int       `json:"layers"`
}

// Emitter delivers an event to everyone in a room.
type Emitter interface {
	EmitTo(room, event string, payload any) error
}

type viewers struct {
	count       int
	unsubscribe func()
}

// Hub subscribes to a session while at least one client watches it.
type Hub struct {
	reg  *editor.Registry
	out  Emitter
	mu   sync.Mutex
	live map[string]*viewers
}

func NewHub(reg *editor.Registry, out Emitter) *Hub {
	return &Hub{
		reg:  reg,
		out:  out,
		live: make(map[string]*viewers),
	}
}

// RoomName is the socket.io room of a session.
func RoomName(sessionID string) string {
	return "session:" + sessionID
}

func NewUpdate(id string, snap editor.Snapshot) Update {
	return Update{
		SessionID:   id,
		Revision:    snap.Revision,
		Color:       shade.Hex(snap.BaseColor),
		ActiveView:  snap.ActiveView,
		GridVisible: snap.GridVisible,
		SelectedID:  snap.SelectedID,
		Phase:       snap.Phase.String(),
		Layers:      len(snap.Elements(snap.ActiveView)),
	}
}

// Attach registers one more viewer of sessionID and returns the current state.
func (h *Hub) Attach(sessionID string) (Update, error) {
	s, err := h.reg.Get(sessionID)
	if err != nil {
		return Update{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.live[sessionID]
	if !ok {
		room := RoomName(sessionID)
		v = &viewers{}
		v.unsubscribe = s.OnChange(func(snap editor.Snapshot) {
			if err := h.out.EmitTo(room, "session-updated", NewUpdate(sessionID, snap)); err != nil {
				logrus.WithError(err).WithField("session_id", sessionID).Warn("Failed to push session update")
			}
		})
		h.live[sessionID] = v
	}
	v.count++
	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"viewers":    v.count,
	}).Debug("Viewer attached")
	return NewUpdate(sessionID, s.Snapshot()), nil
}

// Detach drops one viewer and unsubscribes when the last one leaves.
func (h *Hub) Detach(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.live[sessionID]
	if !ok {
		return
	}
	v.count--
	if v.count <= 0 {
		v.unsubscribe()
		delete(h.live, sessionID)
	}
}

// Viewers reports how many clients watch each session.
func (h *Hub) Viewers() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]int, len(h.live))
	for id, v := range h.live {
		out[id] = v.count
	}
	return out
}

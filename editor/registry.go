package editor

import (
	"apparel-studio/garment"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// DefaultIdleTimeout is how long a session may go untouched before the
// janitor ends it.
const DefaultIdleTimeout = 30 * time.Minute

// Registry keeps the live sessions of a server process.
type Registry struct {
	defaults Config
	renderer *garment.Renderer
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	touched  map[string]time.Time
}

func NewRegistry(defaults Config, renderer *garment.Renderer) *Registry {
	return &Registry{
		defaults: defaults,
		renderer: renderer,
		now:      time.Now,
		sessions: make(map[string]*Session),
		touched:  make(map[string]time.Time),
	}
}

// Create starts a session with the registry defaults.
func (r *Registry) Create() *Session {
	s := NewSession(ulid.Make().String(), r.defaults, r.renderer)
	r.add(s)
	return s
}

func (r *Registry) add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.touched[s.ID()] = r.now()
	r.mu.Unlock()
	logrus.WithField("session_id", s.ID()).Info("Session created")
}

// Get returns a live session and marks it as used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.touched[id] = r.now()
	return s, nil
}

// Delete ends a session and releases its observers.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	delete(r.touched, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Close()
	logrus.WithField("session_id", id).Info("Session ended")
	return nil
}

// IDs lists the live session ids in creation order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sweep ends every session that has not been used for longer than idle and
// returns how many were removed.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	var stale []string
	r.mu.RLock()
	for id, at := range r.touched {
		if at.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, id := range stale {
		if r.Delete(id) == nil {
			n++
		}
	}
	if n > 0 {
		logrus.WithFields(logrus.Fields{
			"expired": n,
			"idle":    idle.String(),
		}).Info("Expired idle sessions")
	}
	return n
}

// Janitor sweeps idle sessions every interval until ctx is cancelled.
func (r *Registry) Janitor(ctx context.Context, idle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(idle)
		}
	}
}

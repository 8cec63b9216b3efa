package memory

import (
	"apparel-studio/core"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// memStore implements both DraftStore and ArtifactStore in process memory.
type memStore struct {
	mu        sync.RWMutex
	artifacts map[string]core.Artifact
	// drafts is keyed by userID, then by draft id.
	drafts map[string]map[string]*core.Draft
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		artifacts: make(map[string]core.Artifact),
		drafts:    make(map[string]map[string]*core.Draft),
	}
}

// FindID retrieves an artifact by its ID. Part of the ArtifactStore interface.
func (s *memStore) FindID(ctx context.Context, id string) (*core.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logrus.WithField("artifact_id", id)
	if val, ok := s.artifacts[id]; ok {
		log.Debug("Artifact retrieved successfully")
		return &val, nil
	}
	log.Warn("Artifact with specified ID not found")
	return nil, fmt.Errorf("artifact %s: %w", id, core.ErrNotFound)
}

// Create stores a new artifact. Part of the ArtifactStore interface.
func (s *memStore) Create(ctx context.Context, artifact *core.Artifact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ulid.Make().String()
	s.artifacts[id] = core.Artifact{
		ContentType: artifact.ContentType,
		Data:        append([]byte(nil), artifact.Data...),
	}
	logrus.WithFields(logrus.Fields{
		"artifact_id": id,
		"data_length": len(artifact.Data),
	}).Info("Artifact created successfully")

	return id, nil
}

// List returns metadata for all drafts owned by a user, newest first.
func (s *memStore) List(ctx context.Context, userID string) ([]*core.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userDrafts := s.drafts[userID]
	drafts := make([]*core.Draft, 0, len(userDrafts))
	for _, d := range userDrafts {
		// The list view never carries the serialized session.
		drafts = append(drafts, &core.Draft{
			ID:        d.ID,
			UserID:    d.UserID,
			Name:      d.Name,
			Thumbnail: d.Thumbnail,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		})
	}
	sort.Slice(drafts, func(i, j int) bool {
		return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
	})

	logrus.WithField("user_id", userID).Debugf("Listed %d drafts", len(drafts))
	return drafts, nil
}

// Get returns a single draft, ensuring it belongs to the user.
func (s *memStore) Get(ctx context.Context, userID, id string) (*core.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[userID][id]
	if !ok {
		logrus.WithFields(logrus.Fields{"user_id": userID, "draft_id": id}).Warn("Draft not found for user")
		return nil, fmt.Errorf("draft %s: %w", id, core.ErrNotFound)
	}
	out := *d
	return &out, nil
}

// Save creates or updates a draft for a user.
func (s *memStore) Save(ctx context.Context, draft *core.Draft) error {
	if draft.UserID == "" {
		return fmt.Errorf("UserID cannot be empty")
	}
	if draft.ID == "" {
		return fmt.Errorf("draft ID cannot be empty for save operation")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userDrafts, ok := s.drafts[draft.UserID]
	if !ok {
		userDrafts = make(map[string]*core.Draft)
		s.drafts[draft.UserID] = userDrafts
	}

	now := time.Now()
	if existing, exists := userDrafts[draft.ID]; exists {
		draft.CreatedAt = existing.CreatedAt
	} else {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now

	stored := *draft
	userDrafts[draft.ID] = &stored
	logrus.WithFields(logrus.Fields{"user_id": draft.UserID, "draft_id": draft.ID}).Info("Draft saved successfully")
	return nil
}

// Delete removes a draft, ensuring it belongs to the user.
func (s *memStore) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"user_id": userID, "draft_id": id})
	if _, ok := s.drafts[userID][id]; !ok {
		log.Warn("Draft not found for deletion")
		return fmt.Errorf("draft %s: %w", id, core.ErrNotFound)
	}

	delete(s.drafts[userID], id)
	log.Info("Draft deleted successfully")
	return nil
}

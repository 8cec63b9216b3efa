package core

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is wrapped by every store when a draft or artifact does not exist.
var ErrNotFound = errors.New("not found")

type (
	// Draft is a user-saved design session.
	Draft struct {
		ID        string    `json:"id"`
		UserID    string    `json:"-"` // Not exposed in JSON responses, used internally.
		Name      string    `json:"name"`
		Thumbnail string    `json:"thumbnail,omitempty"`
		Data      []byte    `json:"data,omitempty"` // Serialized session, not included in list views.
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// DraftStore defines the persistence layer for user-owned drafts.
	// All operations are scoped to a specific user.
	DraftStore interface {
		// List returns metadata for all drafts owned by a user, without Data.
		List(ctx context.Context, userID string) ([]*Draft, error)
		Get(ctx context.Context, userID, id string) (*Draft, error)
		// Save creates or updates a draft, preserving CreatedAt on update.
		Save(ctx context.Context, draft *Draft) error
		Delete(ctx context.Context, userID, id string) error
	}

	// Artifact is an exported image shared by id.
	Artifact struct {
		ContentType string
		Data        []byte
	}

	ArtifactStore interface {
		FindID(ctx context.Context, id string) (*Artifact, error)
		Create(ctx context.Context, artifact *Artifact) (string, error)
	}
)

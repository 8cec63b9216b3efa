package sqlite

import (
	"apparel-studio/core"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore opens the SQLite database and creates the tables it needs.
func NewStore(dataSourceName string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Exported views shared by id
	artifactTableStmt := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		content_type TEXT NOT NULL,
		data BLOB
	);`
	if _, err = db.Exec(artifactTableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create artifacts table: %w", err)
	}

	// User-owned drafts
	draftTableStmt := `
	CREATE TABLE IF NOT EXISTS drafts (
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		name TEXT,
		thumbnail TEXT,
		data BLOB,
		created_at DATETIME,
		updated_at DATETIME,
		PRIMARY KEY (user_id, id)
	);`
	if _, err = db.Exec(draftTableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create drafts table: %w", err)
	}

	return &sqliteStore{db}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// ArtifactStore implementation
func (s *sqliteStore) FindID(ctx context.Context, id string) (*core.Artifact, error) {
	log := logrus.WithField("artifact_id", id)
	var artifact core.Artifact
	err := s.db.QueryRowContext(ctx, "SELECT content_type, data FROM artifacts WHERE id = ?", id).Scan(&artifact.ContentType, &artifact.Data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Artifact with specified ID not found")
			return nil, fmt.Errorf("artifact %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve artifact")
		return nil, err
	}
	log.Debug("Artifact retrieved successfully")
	return &artifact, nil
}

func (s *sqliteStore) Create(ctx context.Context, artifact *core.Artifact) (string, error) {
	id := ulid.Make().String()
	log := logrus.WithFields(logrus.Fields{
		"artifact_id": id,
		"data_length": len(artifact.Data),
	})

	_, err := s.db.ExecContext(ctx, "INSERT INTO artifacts (id, content_type, data) VALUES (?, ?, ?)", id, artifact.ContentType, artifact.Data)
	if err != nil {
		log.WithError(err).Error("Failed to create artifact")
		return "", err
	}
	log.Info("Artifact created successfully")
	return id, nil
}

// DraftStore implementation
func (s *sqliteStore) List(ctx context.Context, userID string) ([]*core.Draft, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, thumbnail, created_at, updated_at FROM drafts WHERE user_id = ? ORDER BY updated_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drafts := []*core.Draft{}
	for rows.Next() {
		draft := core.Draft{UserID: userID}
		if err := rows.Scan(&draft.ID, &draft.Name, &draft.Thumbnail, &draft.CreatedAt, &draft.UpdatedAt); err != nil {
			return nil, err
		}
		drafts = append(drafts, &draft)
	}
	return drafts, rows.Err()
}

func (s *sqliteStore) Get(ctx context.Context, userID, id string) (*core.Draft, error) {
	draft := core.Draft{UserID: userID, ID: id}
	err := s.db.QueryRowContext(ctx, "SELECT name, thumbnail, data, created_at, updated_at FROM drafts WHERE user_id = ? AND id = ?", userID, id).
		Scan(&draft.Name, &draft.Thumbnail, &draft.Data, &draft.CreatedAt, &draft.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("draft %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	return &draft, nil
}

func (s *sqliteStore) Save(ctx context.Context, draft *core.Draft) error {
	if draft.UserID == "" {
		return fmt.Errorf("UserID cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var createdAt time.Time
	err = tx.QueryRowContext(ctx, "SELECT created_at FROM drafts WHERE user_id = ? AND id = ?", draft.UserID, draft.ID).Scan(&createdAt)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	now := time.Now().UTC()
	if exists {
		_, err = tx.ExecContext(ctx, "UPDATE drafts SET name = ?, thumbnail = ?, data = ?, updated_at = ? WHERE user_id = ? AND id = ?",
			draft.Name, draft.Thumbnail, draft.Data, now, draft.UserID, draft.ID)
		draft.CreatedAt = createdAt
	} else {
		_, err = tx.ExecContext(ctx, "INSERT INTO drafts (id, user_id, name, thumbnail, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			draft.ID, draft.UserID, draft.Name, draft.Thumbnail, draft.Data, now, now)
		draft.CreatedAt = now
	}
	if err != nil {
		return err
	}
	draft.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"user_id": draft.UserID, "draft_id": draft.ID}).Info("Draft saved successfully")
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("draft %s: %w", id, core.ErrNotFound)
	}
	return nil
}

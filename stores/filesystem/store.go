package filesystem

import (
	"apparel-studio/core"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type fsStore struct {
	basePath string
}

// NewStore creates a filesystem-based store rooted at basePath. Artifacts
// live in basePath/artifacts, drafts in basePath/drafts/<user>.
func NewStore(basePath string) (*fsStore, error) {
	for _, dir := range []string{"artifacts", "drafts"} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return &fsStore{basePath: basePath}, nil
}

// within joins name onto dir and refuses anything that escapes dir.
func within(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid path: access denied")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path: access denied")
	}
	return absPath, nil
}

// ArtifactStore implementation for shared exports
func (s *fsStore) FindID(ctx context.Context, id string) (*core.Artifact, error) {
	log := logrus.WithField("artifact_id", id)
	filePath, err := within(filepath.Join(s.basePath, "artifacts"), id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Artifact with specified ID not found")
			return nil, fmt.Errorf("artifact %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve artifact")
		return nil, err
	}

	log.Debug("Artifact retrieved successfully")
	return &core.Artifact{
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

func (s *fsStore) Create(ctx context.Context, artifact *core.Artifact) (string, error) {
	id := ulid.Make().String()
	filePath := filepath.Join(s.basePath, "artifacts", id)
	log := logrus.WithFields(logrus.Fields{
		"artifact_id": id,
		"file_path":   filePath,
	})

	if err := os.WriteFile(filePath, artifact.Data, 0644); err != nil {
		log.WithError(err).Error("Failed to create artifact")
		return "", err
	}

	log.Info("Artifact created successfully")
	return id, nil
}

// DraftStore implementation for user-owned drafts
func (s *fsStore) userPath(userID string) (string, error) {
	return within(filepath.Join(s.basePath, "drafts"), userID)
}

func (s *fsStore) draftPath(userID, id string) (string, error) {
	userPath, err := s.userPath(userID)
	if err != nil {
		return "", err
	}
	return within(userPath, id)
}

func (s *fsStore) List(ctx context.Context, userID string) ([]*core.Draft, error) {
	userPath, err := s.userPath(userID)
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("user_id", userID).WithField("path", userPath)

	files, err := os.ReadDir(userPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*core.Draft{}, nil
		}
		log.WithError(err).Error("Failed to read user directory")
		return nil, err
	}

	drafts := make([]*core.Draft, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(userPath, file.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read draft file %s, skipping", file.Name())
			continue
		}

		var draft core.Draft
		if err := json.Unmarshal(data, &draft); err != nil {
			log.WithError(err).Warnf("Failed to unmarshal draft file %s, skipping", file.Name())
			continue
		}
		draft.UserID = userID
		draft.Data = nil
		drafts = append(drafts, &draft)
	}
	sort.Slice(drafts, func(i, j int) bool {
		return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
	})

	log.Debugf("Listed %d drafts", len(drafts))
	return drafts, nil
}

func (s *fsStore) Get(ctx context.Context, userID, id string) (*core.Draft, error) {
	filePath, err := s.draftPath(userID, id)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "draft_id": id, "path": filePath})

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Draft file not found")
			return nil, fmt.Errorf("draft %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to read draft file")
		return nil, err
	}

	var draft core.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		log.WithError(err).Error("Failed to unmarshal draft data")
		return nil, err
	}
	draft.UserID = userID
	return &draft, nil
}

func (s *fsStore) Save(ctx context.Context, draft *core.Draft) error {
	if draft.UserID == "" {
		return fmt.Errorf("UserID cannot be empty")
	}
	filePath, err := s.draftPath(draft.UserID, draft.ID)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": draft.UserID, "draft_id": draft.ID, "path": filePath})

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		log.WithError(err).Error("Failed to create user directory")
		return err
	}

	now := time.Now()
	draft.CreatedAt = now
	if existing, err := s.Get(ctx, draft.UserID, draft.ID); err == nil {
		draft.CreatedAt = existing.CreatedAt
	}
	draft.UpdatedAt = now

	data, err := json.Marshal(draft)
	if err != nil {
		log.WithError(err).Error("Failed to marshal draft for saving")
		return err
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write draft file")
		return err
	}

	log.Info("Draft saved successfully")
	return nil
}

func (s *fsStore) Delete(ctx context.Context, userID, id string) error {
	filePath, err := s.draftPath(userID, id)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "draft_id": id, "path": filePath})

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			log.Warn("Draft file not found for deletion")
			return fmt.Errorf("draft %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to delete draft file")
		return err
	}

	log.Info("Draft deleted successfully")
	return nil
}

package aws

import (
	"apparel-studio/core"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const (
	artifactPrefix = "artifacts"
	draftPrefix    = "drafts"
)

type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// NewStore creates a new S3-based store using the default credential chain.
func NewStore(ctx context.Context, bucketName string) (*s3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &s3Store{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucketName,
	}, nil
}

// segment rejects names that would escape their key prefix.
func segment(kind, name string) error {
	if name == "" || name == "." || name == ".." || path.Base(name) != name {
		return fmt.Errorf("invalid %s: must be a plain name", kind)
	}
	return nil
}

func notFound(err error) bool {
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nsk)
}

// ArtifactStore implementation for shared exports
func (s *s3Store) FindID(ctx context.Context, id string) (*core.Artifact, error) {
	if err := segment("artifact id", id); err != nil {
		return nil, err
	}
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path.Join(artifactPrefix, id)),
	})
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("artifact %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get artifact with id %s: %w", id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact data: %w", err)
	}
	return &core.Artifact{
		ContentType: aws.ToString(resp.ContentType),
		Data:        data,
	}, nil
}

func (s *s3Store) Create(ctx context.Context, artifact *core.Artifact) (string, error) {
	id := ulid.Make().String()

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path.Join(artifactPrefix, id)),
		Body:        bytes.NewReader(artifact.Data),
		ContentType: aws.String(artifact.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"artifact_id": id,
		"bucket":      s.bucket,
	}).Info("Artifact created successfully")
	return id, nil
}

// DraftStore implementation for user-owned drafts
func (s *s3Store) draftKey(userID, id string) (string, error) {
	if err := segment("user id", userID); err != nil {
		return "", err
	}
	if err := segment("draft id", id); err != nil {
		return "", err
	}
	return path.Join(draftPrefix, userID, id), nil
}

func (s *s3Store) List(ctx context.Context, userID string) ([]*core.Draft, error) {
	if err := segment("user id", userID); err != nil {
		return nil, err
	}
	prefix := path.Join(draftPrefix, userID) + "/"
	log := logrus.WithField("user_id", userID)

	drafts := []*core.Draft{}
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list drafts for user %s: %w", userID, err)
		}
		for _, object := range page.Contents {
			draft, err := s.read(ctx, aws.ToString(object.Key))
			if err != nil {
				log.WithError(err).Warnf("Failed to load draft %s, skipping", aws.ToString(object.Key))
				continue
			}
			draft.UserID = userID
			draft.Data = nil
			drafts = append(drafts, draft)
		}
	}
	sort.Slice(drafts, func(i, j int) bool {
		return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
	})
	return drafts, nil
}

func (s *s3Store) read(ctx context.Context, key string) (*core.Draft, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft data: %w", err)
	}
	var draft core.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft data: %w", err)
	}
	return &draft, nil
}

func (s *s3Store) Get(ctx context.Context, userID, id string) (*core.Draft, error) {
	key, err := s.draftKey(userID, id)
	if err != nil {
		return nil, err
	}
	draft, err := s.read(ctx, key)
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("draft %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get draft %s: %w", id, err)
	}
	draft.UserID = userID
	return draft, nil
}

func (s *s3Store) Save(ctx context.Context, draft *core.Draft) error {
	key, err := s.draftKey(draft.UserID, draft.ID)
	if err != nil {
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
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to save draft %s: %w", draft.ID, err)
	}
	return nil
}

func (s *s3Store) Delete(ctx context.Context, userID, id string) error {
	key, err := s.draftKey(userID, id)
	if err != nil {
		return err
	}
	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", id, err)
	}
	return nil
}

package stores

import (
	"apparel-studio/config"
	"apparel-studio/core"
	"apparel-studio/stores/aws"
	"apparel-studio/stores/filesystem"
	"apparel-studio/stores/memory"
	"apparel-studio/stores/sqlite"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Store is a union interface that includes all store types.
type Store interface {
	core.DraftStore
	core.ArtifactStore
}

// GetStore builds the store selected by the storage configuration.
func GetStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	var (
		store Store
		err   error
	)

	storageField := logrus.Fields{
		"storageType": cfg.Type,
	}

	switch cfg.Type {
	case "filesystem":
		storageField["basePath"] = cfg.Path
		store, err = filesystem.NewStore(cfg.Path)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store, err = sqlite.NewStore(cfg.DataSourceName)
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET_NAME must be set for s3 storage type")
		}
		storageField["bucketName"] = cfg.Bucket
		store, err = aws.NewStore(ctx, cfg.Bucket)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(storageField).Info("Use storage")
	return store, nil
}

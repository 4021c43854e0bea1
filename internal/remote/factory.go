package remote

import (
	"context"
	"fmt"
	"os"

	"habitsync/internal/config"
)

// Environment variables holding static S3 credentials. When unset the
// default AWS credential chain applies.
const (
	EnvS3AccessKeyID     = "HABITSYNC_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "HABITSYNC_S3_SECRET_ACCESS_KEY"
)

// NewBackendFromConfig creates a Backend based on the remote config type.
func NewBackendFromConfig(ctx context.Context, cfg config.RemoteConfig) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryBackend(cfg.Name), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem remote requires fs_root to be set")
		}
		b, err := NewFileSystemBackend(cfg.Name, cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "s3":
		b, err := NewS3Backend(ctx, cfg.Name, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     os.Getenv(EnvS3AccessKeyID),
			SecretAccessKey: os.Getenv(EnvS3SecretAccessKey),
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}

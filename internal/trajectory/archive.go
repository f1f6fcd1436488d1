package trajectory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gridpilot-labs/gridpilot-go/internal/config"
)

// Archive mirrors finished trajectories into an object-store bucket under
// <task>/<run>/<file>. It is strictly additive: the local directory stays
// authoritative and upload failures never fail a run.
type Archive struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

func NewArchive(cfg config.ArchiveConfig, logger *slog.Logger) (*Archive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("archive client: %w", err)
	}
	return &Archive{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// EnsureBucket creates the archive bucket when it does not exist yet.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	if a == nil || a.client == nil {
		return fmt.Errorf("archive not initialized")
	}
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %q: %w", a.bucket, err)
	}
	return nil
}

// Upload copies each artifact into the bucket. Failed objects are logged
// and skipped; the first error is returned so the caller can log it too.
func (a *Archive) Upload(ctx context.Context, taskName, runName string, artifacts []Artifact) error {
	if a == nil || a.client == nil {
		return nil
	}
	var firstErr error
	for _, artifact := range artifacts {
		key := fmt.Sprintf("%s/%s/%s", taskName, runName, filepath.Base(artifact.Path))
		_, err := a.client.FPutObject(ctx, a.bucket, key, artifact.Path, minio.PutObjectOptions{
			ContentType: "image/png",
		})
		if err != nil {
			a.logger.Error("archive upload failed", "key", key, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
	}
	return firstErr
}

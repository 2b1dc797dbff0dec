package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/google/uuid"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bdougie/videojudge/internal/models"
)

// MinIOConfig holds connection details for an S3 compatible object store
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// MinIO uploads each record as its own object under <video>/<run id>/
type MinIO struct {
	client *miniogo.Client
	bucket string
	prefix string
}

// NewMinIO creates the client and makes sure the bucket exists
func NewMinIO(ctx context.Context, cfg MinIOConfig, videoName string) (*MinIO, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, miniogo.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinIO{
		client: client,
		bucket: cfg.Bucket,
		prefix: objectPrefix(videoName, uuid.New()),
	}, nil
}

func objectPrefix(videoName string, runID uuid.UUID) string {
	return path.Join(videoName, runID.String())
}

func recordKey(prefix, frameID string) string {
	return path.Join(prefix, "analysis", path.Base(frameID)+".json")
}

func (s *MinIO) AddResult(ctx context.Context, result models.Record) error {
	return s.put(ctx, recordKey(s.prefix, result.FrameID), result)
}

func (s *MinIO) SaveVerdict(ctx context.Context, v models.Verdict) error {
	return s.put(ctx, path.Join(s.prefix, verdictFile), v)
}

func (s *MinIO) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), miniogo.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (s *MinIO) Close() error { return nil }

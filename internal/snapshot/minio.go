package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps snapshots in an S3-compatible bucket. References use the
// same web prefix as the local store; the API proxies reads.
type MinioStore struct {
	mc        *minio.Client
	bucket    string
	urlPrefix string
}

// NewMinioStore connects and ensures the bucket exists.
func NewMinioStore(ctx context.Context, cfg config.SnapshotConfig) (*MinioStore, error) {
	mc, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("bucket created", "bucket", cfg.MinioBucket)
	}

	return &MinioStore{mc: mc, bucket: cfg.MinioBucket, urlPrefix: cfg.URLPrefix}, nil
}

func (s *MinioStore) Save(ctx context.Context, jpeg []byte) (string, error) {
	name := newName()
	_, err := s.mc.PutObject(ctx, s.bucket, name, bytes.NewReader(jpeg), int64(len(jpeg)), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", s.bucket, name, err)
	}
	return reference(s.urlPrefix, name), nil
}

func (s *MinioStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, ErrNotFound
	}
	if _, err := s.mc.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s/%s: %w", s.bucket, name, err)
	}
	obj, err := s.mc.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", s.bucket, name, err)
	}
	return obj, nil
}

// New selects the MinIO store when an endpoint is configured, otherwise the local one.
func New(ctx context.Context, cfg config.SnapshotConfig) (Store, error) {
	if cfg.UseMinio() {
		return NewMinioStore(ctx, cfg)
	}
	return NewLocalStore(cfg.Dir, cfg.URLPrefix)
}

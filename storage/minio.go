package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL prefixes object URLs; defaults to the endpoint.
	PublicURL string
}

// MinioStorage stores files in a MinIO/S3 bucket.
type MinioStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinioStorage(ctx context.Context, cfg MinioConfig) (*MinioStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	host := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		host = u.Host
		useSSL = useSSL || u.Scheme == "https"
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + host
	}

	return &MinioStorage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (s *MinioStorage) Store(ctx context.Context, f File, folder string) (StoredFile, error) {
	key := path.Join(strings.Trim(folder, "/"), uuid.NewString()+strings.ToLower(path.Ext(f.Name)))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, f.Data, f.Size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return StoredFile{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return StoredFile{
		URL:      s.publicURL + "/" + s.bucket + "/" + key,
		PublicID: key,
	}, nil
}

func (s *MinioStorage) Delete(ctx context.Context, publicID string) (DeleteResult, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, publicID, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return DeleteResult{Result: ResultNotFound, Deleted: publicID}, nil
		}
		return DeleteResult{}, fmt.Errorf("stat object %s: %w", publicID, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return DeleteResult{}, fmt.Errorf("remove object %s: %w", publicID, err)
	}
	return DeleteResult{Result: ResultOK, Deleted: publicID}, nil
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSConfig holds configuration for the Google Cloud Storage backend.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// GCS stores entries in Google Cloud Storage. It uses Application Default
// Credentials. Create-only writes use the DoesNotExist precondition.
type GCS struct {
	client *gcs.Client
	bucket string
	prefix string
}

func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *GCS) object(key string) *gcs.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(objectKey(s.prefix, key))
}

func (s *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gcs read %s: %w", objectKey(s.prefix, key), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs read %s: %w", objectKey(s.prefix, key), err)
	}
	return data, nil
}

func (s *GCS) PutIfAbsent(ctx context.Context, key string, data []byte) (bool, error) {
	w := s.object(key).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		w.Close()
		if isGCSPreconditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("gcs write %s: %w", objectKey(s.prefix, key), err)
	}
	if err := w.Close(); err != nil {
		if isGCSPreconditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("gcs close %s: %w", objectKey(s.prefix, key), err)
	}
	return true, nil
}

// Close releases the underlying client.
func (s *GCS) Close() error {
	return s.client.Close()
}

func isGCSPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

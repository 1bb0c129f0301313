package gcp

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
)

// ImageStore fetches photo bytes by URL from the configured bucket. The
// bucket is fixed at startup; the URL only contributes the object path.
type ImageStore interface {
	DownloadImage(ctx context.Context, imageURL string) (*ImageBlob, error)
	Close() error
}

type ImageBlob struct {
	Data        []byte
	ContentType string
}

type imageStore struct {
	log        *logger.Logger
	client     *storage.Client
	bucketName string
}

func NewImageStore(log *logger.Logger) (ImageStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.ImageStore")

	bucketName := strings.TrimSpace(os.Getenv("GCS_BUCKET_NAME"))
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}

	ctx := context.Background()
	client, err := storage.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	return &imageStore{log: slog, client: client, bucketName: bucketName}, nil
}

func (s *imageStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *imageStore) DownloadImage(ctx context.Context, imageURL string) (*ImageBlob, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("parse image url: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return nil, fmt.Errorf("image url %q has no object path", imageURL)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	r, err := s.client.Bucket(s.bucketName).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS reader for %q: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object %q: %w", key, err)
	}

	contentType := r.Attrs.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return &ImageBlob{Data: data, ContentType: contentType}, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"ProjectZukan/pkg/s3"
	"ProjectZukan/pkg/utils"
)

var ErrUnsupportedImage = errors.New("unsupported image type")

// IImageStore persists captured photos and returns the URI recorded in the store.
type IImageStore interface {
	Save(ctx context.Context, data []byte) (string, error)
	Delete(ctx context.Context, uri string) error
}

func extensionFor(data []byte) (string, string, error) {
	contentType := http.DetectContentType(data)
	switch contentType {
	case "image/jpeg":
		return ".jpg", contentType, nil
	case "image/png":
		return ".png", contentType, nil
	default:
		return "", contentType, fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}
}

type LocalStore struct {
	dir       string
	urlPrefix string
	utils     utils.IUtils
}

// NewLocalStore creates dir if needed. Saved files are addressed as urlPrefix/<ulid>.<ext>.
func NewLocalStore(dir, urlPrefix string, u utils.IUtils) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &LocalStore{
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		utils:     u,
	}, nil
}

func (s *LocalStore) Save(ctx context.Context, data []byte) (string, error) {
	ext, _, err := extensionFor(data)
	if err != nil {
		return "", err
	}

	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return "", err
	}

	name := strings.ToLower(id) + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	return path.Join(s.urlPrefix, name), nil
}

func (s *LocalStore) Delete(ctx context.Context, uri string) error {
	name := path.Base(uri)
	if name == "." || name == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

type S3Store struct {
	client s3.ItfS3
	prefix string
	utils  utils.IUtils
}

func NewS3Store(client s3.ItfS3, keyPrefix string, u utils.IUtils) *S3Store {
	return &S3Store{client: client, prefix: strings.Trim(keyPrefix, "/"), utils: u}
}

func (s *S3Store) Save(ctx context.Context, data []byte) (string, error) {
	ext, contentType, err := extensionFor(data)
	if err != nil {
		return "", err
	}

	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return "", err
	}

	key := strings.ToLower(id) + ext
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	location, err := s.client.UploadBytes(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return location, nil
}

func (s *S3Store) Delete(ctx context.Context, uri string) error {
	return s.client.DeleteFile(ctx, uri)
}

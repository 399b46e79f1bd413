package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SignedURLTTL is how long a signed download URL stays valid.
const SignedURLTTL = 5 * time.Minute

// Kinds of uploaded files; each gets its own path prefix.
const (
	KindReceipt = "receipt"
	KindForm    = "form"
	KindPacket  = "packet"
)

// ErrNotConfigured is returned when no object store has been set up.
var ErrNotConfigured = errors.New("file storage is not configured")

// ValidKind reports whether kind is an accepted upload type.
func ValidKind(kind string) bool {
	switch kind {
	case KindReceipt, KindForm, KindPacket:
		return true
	default:
		return false
	}
}

// ObjectStore is the subset of an S3 client the service needs.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key, contentType string, r io.Reader, size int64) error
	RemoveBatch(ctx context.Context, bucket string, keys []string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (*url.URL, error)
}

// Service uploads, removes and signs stored files.
type Service struct {
	store  ObjectStore
	bucket string
}

// NewService creates a Service writing new objects to bucket.
func NewService(store ObjectStore, bucket string) *Service {
	return &Service{store: store, bucket: bucket}
}

// Upload stores r under <kind>/<uuid><ext> and returns its reference.
func (s *Service) Upload(ctx context.Context, kind, filename, contentType string, r io.Reader, size int64) (string, error) {
	if s == nil || s.store == nil {
		return "", ErrNotConfigured
	}
	if !ValidKind(kind) {
		return "", fmt.Errorf("unknown upload type %q", kind)
	}

	ext := strings.ToLower(path.Ext(filename))
	ref := Ref{Bucket: s.bucket, Path: kind + "/" + uuid.NewString() + ext}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.store.Put(ctx, ref.Bucket, ref.Path, contentType, r, size); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", kind, err)
	}
	return ref.String(), nil
}

// Remove deletes every referenced object in one batch. Every reference must
// point into the service's bucket.
func (s *Service) Remove(ctx context.Context, refs []string) error {
	if len(refs) == 0 {
		return nil
	}
	if s == nil || s.store == nil {
		return ErrNotConfigured
	}

	keys := make([]string, 0, len(refs))
	for _, raw := range refs {
		ref, err := s.parse(raw)
		if err != nil {
			return err
		}
		keys = append(keys, ref.Path)
	}

	if err := s.store.RemoveBatch(ctx, s.bucket, keys); err != nil {
		return fmt.Errorf("failed to remove files from %s: %w", s.bucket, err)
	}
	return nil
}

// SignedURL returns a download URL for ref that expires after SignedURLTTL.
func (s *Service) SignedURL(ctx context.Context, raw string) (string, error) {
	if s == nil || s.store == nil {
		if _, err := ParseRef(raw); err != nil {
			return "", err
		}
		return "", ErrNotConfigured
	}
	ref, err := s.parse(raw)
	if err != nil {
		return "", err
	}

	u, err := s.store.PresignGet(ctx, ref.Bucket, ref.Path, SignedURLTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign url: %w", err)
	}
	return u.String(), nil
}

// Check reports whether raw is a reference this service may sign and remove.
func (s *Service) Check(raw string) error {
	if s == nil {
		_, err := ParseRef(raw)
		return err
	}
	_, err := s.parse(raw)
	return err
}

// parse accepts only references into the service's own bucket.
func (s *Service) parse(raw string) (Ref, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return Ref{}, err
	}
	if ref.Bucket != s.bucket {
		return Ref{}, fmt.Errorf("%w: %q is outside bucket %s", ErrInvalidRef, raw, s.bucket)
	}
	return ref, nil
}

// MinioStore is an ObjectStore backed by minio-go.
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore connects to an S3-compatible endpoint.
func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &MinioStore{client: client}, nil
}

// EnsureBucket creates bucket when it does not exist yet.
func (m *MinioStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// Put implements ObjectStore.
func (m *MinioStore) Put(ctx context.Context, bucket, key, contentType string, r io.Reader, size int64) error {
	_, err := m.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

// RemoveBatch implements ObjectStore.
func (m *MinioStore) RemoveBatch(ctx context.Context, bucket string, keys []string) error {
	objects := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objects <- minio.ObjectInfo{Key: key}
	}
	close(objects)

	var first error
	for rerr := range m.client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		if first == nil && rerr.Err != nil {
			first = fmt.Errorf("remove %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return first
}

// PresignGet implements ObjectStore.
func (m *MinioStore) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (*url.URL, error) {
	return m.client.PresignedGetObject(ctx, bucket, key, ttl, url.Values{})
}

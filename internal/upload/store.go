package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
)

// ObjectStore is the object-storage collaborator.
type ObjectStore interface {
	Bucket() string
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// =====================================================
// GCS
// =====================================================

type GCSStore struct {
	Client     *storage.Client
	BucketName string
}

func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{Client: client, BucketName: strings.TrimSpace(bucket)}
}

func (s *GCSStore) Bucket() string { return s.BucketName }

func (s *GCSStore) bucket() (*storage.BucketHandle, error) {
	if s.Client == nil {
		return nil, errors.New("upload: GCS client is nil")
	}
	if s.BucketName == "" {
		return nil, errors.New("upload: bucket is empty")
	}
	return s.Client.Bucket(s.BucketName), nil
}

func (s *GCSStore) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	b, err := s.bucket()
	if err != nil {
		return err
	}
	w := b.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "private, max-age=3600"
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", s.BucketName, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", s.BucketName, key, err)
	}
	return nil
}

// SignedURL issues a GET URL. V4 signatures cap expiry at seven days, so the
// V2 scheme is used for year-long links.
func (s *GCSStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	b, err := s.bucket()
	if err != nil {
		return "", err
	}
	return b.SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV2,
		Method:  http.MethodGet,
		Expires: time.Now().UTC().Add(ttl),
	})
}

// Delete treats an already missing object as deleted.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	b, err := s.bucket()
	if err != nil {
		return err
	}
	if err := b.Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("delete gs://%s/%s: %w", s.BucketName, key, err)
	}
	return nil
}

// =====================================================
// In-memory
// =====================================================

type memoryObject struct {
	ContentType string
	Data        []byte
}

// MemoryStore serves objects from process memory under BaseURL.
type MemoryStore struct {
	BaseURL    string
	BucketName string

	mu      sync.Mutex
	objects map[string]memoryObject
}

func NewMemoryStore(baseURL, bucket string) *MemoryStore {
	return &MemoryStore{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		BucketName: bucket,
		objects:    map[string]memoryObject{},
	}
}

func (m *MemoryStore) Bucket() string { return m.BucketName }

func (m *MemoryStore) Put(_ context.Context, key, contentType string, body io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{ContentType: contentType, Data: buf.Bytes()}
	return nil
}

func (m *MemoryStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	_, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	return fmt.Sprintf("%s/%s/%s?expires=%d", m.BaseURL, m.BucketName, key, time.Now().Add(ttl).Unix()), nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Object returns a stored object, for tests and local serving.
func (m *MemoryStore) Object(key string) (contentType string, data []byte, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o.ContentType, o.Data, ok
}

var (
	_ ObjectStore = (*GCSStore)(nil)
	_ ObjectStore = (*MemoryStore)(nil)
)

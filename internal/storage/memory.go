package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-process ObjectStore for tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	// FailRemove makes RemoveBatch fail without deleting anything.
	FailRemove error
	// RemoveCalls counts RemoveBatch invocations.
	RemoveCalls int
	now         func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		now:     time.Now,
	}
}

func memKey(bucket, key string) string { return bucket + "/" + key }

// Put implements ObjectStore.
func (m *MemoryStore) Put(_ context.Context, bucket, key, contentType string, r io.Reader, _ int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[memKey(bucket, key)] = data
	m.types[memKey(bucket, key)] = contentType
	return nil
}

// RemoveBatch implements ObjectStore.
func (m *MemoryStore) RemoveBatch(_ context.Context, bucket string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemoveCalls++
	if m.FailRemove != nil {
		return m.FailRemove
	}
	for _, key := range keys {
		delete(m.objects, memKey(bucket, key))
		delete(m.types, memKey(bucket, key))
	}
	return nil
}

// PresignGet implements ObjectStore. The URL carries its expiry as a Unix
// timestamp in the "expires" query parameter.
func (m *MemoryStore) PresignGet(_ context.Context, bucket, key string, ttl time.Duration) (*url.URL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[memKey(bucket, key)]; !ok {
		return nil, errors.New("object not found")
	}
	u := &url.URL{Scheme: "https", Host: "storage.local", Path: "/" + memKey(bucket, key)}
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(m.now().Add(ttl).Unix(), 10))
	u.RawQuery = q.Encode()
	return u, nil
}

// Object returns the stored bytes for a reference.
func (m *MemoryStore) Object(raw string) ([]byte, bool) {
	ref, err := ParseRef(raw)
	if err != nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[memKey(ref.Bucket, ref.Path)]
	return data, ok
}

// ContentType returns the stored content type for a reference.
func (m *MemoryStore) ContentType(raw string) string {
	ref, err := ParseRef(raw)
	if err != nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types[memKey(ref.Bucket, ref.Path)]
}

// Len reports how many objects are stored.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *MemoryStore) String() string {
	return fmt.Sprintf("MemoryStore(%d objects)", m.Len())
}

package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/catalog-backend/pkg/storage"
)

type entry struct {
	data        []byte
	contentType string
	etag        string
	updated     time.Time
}

// Store keeps blobs in process memory. Used by tests and local development.
type Store struct {
	mu      sync.RWMutex
	objects map[string]entry
	now     func() time.Time
}

var _ storage.ObjectStore = (*Store)(nil)

func New() *Store {
	return &Store{objects: map[string]entry{}, now: time.Now}
}

// WithClock overrides the timestamp assigned to new objects.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Put(ctx context.Context, key, contentType string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	sum := md5.Sum(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = entry{
		data:        data,
		contentType: contentType,
		etag:        `"` + hex.EncodeToString(sum[:]) + `"`,
		updated:     s.now(),
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (*storage.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{
		Key:         key,
		Body:        io.NopCloser(bytes.NewReader(e.data)),
		ContentType: e.contentType,
		Size:        int64(len(e.data)),
		ETag:        e.etag,
		Updated:     e.updated,
	}, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.ObjectInfo, 0, len(s.objects))
	for key, e := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(e.data)), Updated: e.updated})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Has reports whether key is stored.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

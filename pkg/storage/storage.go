package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when the requested key does not exist.
var ErrNotFound = errors.New("object not found")

// Object is a fetched blob. Callers must close Body.
type Object struct {
	Key         string
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ETag        string
	Updated     time.Time
}

// ObjectInfo describes a listed blob without its content.
type ObjectInfo struct {
	Key     string
	Size    int64
	Updated time.Time
}

// ObjectStore is the blob backend for product images.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Ping(ctx context.Context) error
}

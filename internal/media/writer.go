package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/angelmondragon/catalog-backend/pkg/errors"
	"github.com/angelmondragon/catalog-backend/pkg/storage"
)

const deleteConcurrency = 4

// Writer moves validated uploads into the object store.
type Writer struct {
	store storage.ObjectStore
	now   func() time.Time
}

func NewWriter(store storage.ObjectStore) (*Writer, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	return &Writer{store: store, now: time.Now}, nil
}

// WithClock overrides the timestamp used in generated keys.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// Put stores uploads under folder. Key indexes start at startIndex. On
// failure the keys already written are returned alongside the error.
func (w *Writer) Put(ctx context.Context, folder string, startIndex int, uploads []Upload) ([]string, error) {
	keys := make([]string, 0, len(uploads))
	at := w.now()
	for i, u := range uploads {
		key := BuildKey(folder, at, startIndex+i, u.FileName)
		if err := w.putOne(ctx, key, u); err != nil {
			return keys, pkgerrors.Wrap(pkgerrors.CodeStorage, err, fmt.Sprintf("failed to store %q: %v", u.FileName, err))
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (w *Writer) putOne(ctx context.Context, key string, u Upload) error {
	body, err := u.Open()
	if err != nil {
		return err
	}
	defer body.Close()
	return w.store.Put(ctx, key, u.ContentType, body, u.Size)
}

// DeleteAll removes every key, tolerating keys that are already gone. All
// deletions are attempted; failures are combined.
func (w *Writer) DeleteAll(ctx context.Context, keys []string) error {
	return DeleteKeys(ctx, w.store, keys)
}

// DeleteKeys is DeleteAll for callers holding only a store.
func DeleteKeys(ctx context.Context, store storage.ObjectStore, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	errs := make([]error, len(keys))
	var g errgroup.Group
	g.SetLimit(deleteConcurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			if err := store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
				errs[i] = fmt.Errorf("delete %s: %w", key, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return multierr.Combine(errs...)
}

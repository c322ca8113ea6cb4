package memory

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/catalog-backend/pkg/storage"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	store := New().WithClock(func() time.Time { return fixed })

	require.NoError(t, store.Put(ctx, "bags/1_0_tote.png", "image/png", strings.NewReader("png-bytes"), 9))

	obj, err := store.Get(ctx, "bags/1_0_tote.png")
	require.NoError(t, err)
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, int64(9), obj.Size)
	assert.NotEmpty(t, obj.ETag)
	assert.Equal(t, fixed, obj.Updated)
}

func TestStoreMissingKey(t *testing.T) {
	store := New()
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.Delete(context.Background(), "missing"), storage.ErrNotFound)
}

func TestStoreListByPrefix(t *testing.T) {
	ctx := context.Background()
	store := New()
	for _, key := range []string{"yoga/b.png", "bags/a.png", "yoga/a.png"} {
		require.NoError(t, store.Put(ctx, key, "image/png", strings.NewReader("x"), 1))
	}

	items, err := store.List(ctx, "yoga/")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "yoga/a.png", items[0].Key)
	assert.Equal(t, "yoga/b.png", items[1].Key)
}

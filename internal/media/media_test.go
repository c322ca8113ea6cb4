package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/catalog-backend/pkg/errors"
	"github.com/angelmondragon/catalog-backend/pkg/storage"
	"github.com/angelmondragon/catalog-backend/pkg/storage/memory"
)

func TestValidatorFilterSkipsEmptyFiles(t *testing.T) {
	v := NewValidator(0)
	uploads := []Upload{
		FromBytes("empty.png", "image/png", nil),
		FromBytes("a.png", "image/png", []byte("a")),
	}
	out, err := v.Filter(uploads)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a.png", out[0].FileName)
}

func TestValidatorRejectsOversizeFile(t *testing.T) {
	v := NewValidator(5 << 20)
	big := Upload{FileName: "huge.jpg", ContentType: "image/jpeg", Size: 6 << 20}

	_, err := v.Filter([]Upload{FromBytes("ok.png", "image/png", []byte("x")), big})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, `File "huge.jpg" is too large (6.00MB). Maximum size is 5MB.`, typed.Message())
}

func TestValidatorRejectsNonImage(t *testing.T) {
	v := NewValidator(0)
	for _, ct := range []string{"application/pdf", "", "not a type;;"} {
		err := v.Check(Upload{FileName: "doc.pdf", ContentType: ct, Size: 10})
		require.Error(t, err, ct)
		assert.Equal(t, `File "doc.pdf" is not a valid image format.`, pkgerrors.As(err).Message())
	}
	assert.NoError(t, v.Check(Upload{FileName: "a.webp", ContentType: "image/webp; charset=binary", Size: 10}))
}

func TestFolderFromName(t *testing.T) {
	assert.Equal(t, "Test_Bag", FolderFromName("Test Bag"))
	assert.Equal(t, "___mat", FolderFromName("ヨガ mat"))
}

func TestBuildKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "Test_Bag/1700000000123_0_front.png", BuildKey("Test_Bag", at, 0, "front.png"))
	assert.Equal(t, "bags/1700000000123_2_my-photo.jpg", BuildKey("/bags/", at, 2, "C:\\Users\\me\\my photo.jpg"))
	assert.Equal(t, "bags/1700000000123_1_トート.png", BuildKey("bags", at, 1, "トート.png"))
	assert.Equal(t, "bags/1700000000123_3_image", BuildKey("bags", at, 3, ""))
}

func TestDiffKeys(t *testing.T) {
	diff := DiffKeys([]string{"a", "b", "c"}, []string{"c", "a", "b"})
	assert.True(t, diff.IsPermutation())

	diff = DiffKeys([]string{"a", "b", "c"}, []string{"a", "x", "a"})
	assert.False(t, diff.IsPermutation())
	assert.Equal(t, []string{"b", "c"}, diff.Missing)
	assert.Equal(t, []string{"x"}, diff.Unknown)
	assert.Equal(t, []string{"a"}, diff.Duplicates)
}

func TestUnreferenced(t *testing.T) {
	got := Unreferenced([]string{"a", "b", "c", "b"}, []string{"b"})
	assert.Equal(t, []string{"a", "c"}, got)
	assert.Nil(t, Unreferenced([]string{"a"}, []string{"a"}))
}

func TestWriterPutAndDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w, err := NewWriter(store)
	require.NoError(t, err)
	w.WithClock(func() time.Time { return time.UnixMilli(1000) })

	keys, err := w.Put(ctx, "bags", 2, []Upload{
		FromBytes("a.png", "image/png", []byte("a")),
		FromBytes("b.png", "image/png", []byte("b")),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bags/1000_2_a.png", "bags/1000_3_b.png"}, keys)

	obj, err := store.Get(ctx, keys[1])
	require.NoError(t, err)
	data, _ := io.ReadAll(obj.Body)
	assert.Equal(t, "b", string(data))

	require.NoError(t, w.DeleteAll(ctx, append(keys, "bags/missing.png")))
	assert.Equal(t, 0, store.Len())
}

type failingStore struct {
	*memory.Store
	failPut    string
	failDelete map[string]bool
}

func (f *failingStore) Put(ctx context.Context, key, ct string, body io.Reader, size int64) error {
	if strings.Contains(key, f.failPut) && f.failPut != "" {
		return errors.New("quota exceeded")
	}
	return f.Store.Put(ctx, key, ct, body, size)
}

func (f *failingStore) Delete(ctx context.Context, key string) error {
	if f.failDelete[key] {
		return errors.New("permission denied")
	}
	return f.Store.Delete(ctx, key)
}

var _ storage.ObjectStore = (*failingStore)(nil)

func TestWriterPutReturnsWrittenKeysOnFailure(t *testing.T) {
	store := &failingStore{Store: memory.New(), failPut: "b.png"}
	w, err := NewWriter(store)
	require.NoError(t, err)

	keys, err := w.Put(context.Background(), "bags", 0, []Upload{
		FromBytes("a.png", "image/png", []byte("a")),
		FromBytes("b.png", "image/png", []byte("b")),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStorage))
	assert.Len(t, keys, 1)
}

func TestDeleteKeysCombinesFailures(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.New(), failDelete: map[string]bool{"x": true, "y": true}}
	for _, key := range []string{"x", "y", "z"} {
		require.NoError(t, store.Store.Put(ctx, key, "image/png", strings.NewReader("1"), 1))
	}

	err := DeleteKeys(ctx, store, []string{"x", "y", "z"})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.False(t, store.Has("z"))
}

func TestNewWriterRequiresStore(t *testing.T) {
	_, err := NewWriter(nil)
	assert.Error(t, err)
}

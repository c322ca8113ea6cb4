package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/catalog-backend/internal/media"
	pkgerrors "github.com/angelmondragon/catalog-backend/pkg/errors"
)

func TestDeleteImageRenumbersAndResyncsPrimary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.create(t, "Tote", catBags, "a.png", "b.png", "c.png")
	before, err := env.svc.GetProduct(ctx, id)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteImage(ctx, id, before.Images[0]))

	after, err := env.svc.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.Images[1:], after.Images)
	assert.Equal(t, before.Images[1], after.Image)
	assert.False(t, env.store.Has(before.Images[0]))

	images, err := env.repo.ListImages(ctx, id)
	require.NoError(t, err)
	for i, img := range images {
		assert.Equal(t, i, img.DisplayOrder)
	}
	assert.Contains(t, env.invalidator.products, id)
	assert.Equal(t, []string{before.Images[0]}, env.invalidator.images)
}

func TestDeleteLastImageClearsPrimary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.create(t, "Tote", catBags, "a.png")
	detail, err := env.svc.GetProduct(ctx, id)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteImage(ctx, id, detail.Image))

	after, err := env.svc.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, after.Image)
	assert.Empty(t, after.Images)

	err = env.svc.UpdateProduct(ctx, id, UpdateProductInput{
		Name:     "Tote",
		Category: catBags,
		Images:   []media.Upload{png("new.png")},
	})
	require.NoError(t, err)
	after, err = env.svc.GetProduct(ctx, id)
	require.NoError(t, err)
	require.Len(t, after.Images, 1)
	assert.Equal(t, after.Images[0], after.Image)
}

func TestDeleteImageNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.svc.DeleteImage(ctx, 7, "x/y.png")
	requireCode(t, err, pkgerrors.CodeNotFound, "Product not found")

	id := env.create(t, "Tote", catBags, "a.png")
	other := env.create(t, "Other", catBags, "b.png")
	otherDetail, err := env.svc.GetProduct(ctx, other)
	require.NoError(t, err)

	err = env.svc.DeleteImage(ctx, id, otherDetail.Image)
	requireCode(t, err, pkgerrors.CodeNotFound, "Image not found")
	assert.True(t, env.store.Has(otherDetail.Image))
}

func TestReorderImagesRewritesOrderAndPrimary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.create(t, "Tote", catBags, "a.png", "b.png", "c.png")
	before, err := env.svc.GetProduct(ctx, id)
	require.NoError(t, err)

	reversed := []string{before.Images[2], before.Images[1], before.Images[0]}
	require.NoError(t, env.svc.ReorderImages(ctx, id, reversed))

	after, err := env.svc.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, reversed, after.Images)
	assert.Equal(t, reversed[0], after.Image)
}

func TestReorderImagesRequiresPermutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.create(t, "Tote", catBags, "a.png", "b.png")
	before, err := env.svc.GetProduct(ctx, id)
	require.NoError(t, err)

	err = env.svc.ReorderImages(ctx, id, nil)
	requireCode(t, err, pkgerrors.CodeValidation, "Images array is required")

	err = env.svc.ReorderImages(ctx, id, []string{before.Images[1]})
	requireCode(t, err, pkgerrors.CodeValidation, "")
	diff, ok := pkgerrors.As(err).Details().(media.KeyDiff)
	require.True(t, ok)
	assert.Equal(t, []string{before.Images[0]}, diff.Missing)

	err = env.svc.ReorderImages(ctx, id, []string{before.Images[1], before.Images[0], "stray.png"})
	requireCode(t, err, pkgerrors.CodeValidation, "")

	err = env.svc.ReorderImages(ctx, 999, []string{"a"})
	requireCode(t, err, pkgerrors.CodeNotFound, "Product not found")

	after, err := env.svc.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.Images, after.Images)
}

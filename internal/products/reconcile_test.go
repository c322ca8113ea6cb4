package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/catalog-backend/pkg/enums"
)

func newTestReconciler(t *testing.T, env *testEnv) *Reconciler {
	t.Helper()
	r, err := NewReconciler(env.repo, env.dbClient)
	require.NoError(t, err)
	return r
}

func TestReconcilerRepairsPrimaryImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := newTestReconciler(t, env)

	id := env.create(t, "Tote", catBags, "a.png", "b.png")
	healthy := env.create(t, "Other", catBags, "c.png")
	detail, err := env.svc.GetProduct(ctx, id)
	require.NoError(t, err)

	require.NoError(t, env.repo.SetPrimaryImage(ctx, id, "stale.png"))

	ids, err := rec.MismatchedPrimaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)
	assert.NotContains(t, ids, healthy)

	primary, err := rec.ResyncPrimaryImage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, detail.Images[0], primary)

	ids, err = rec.MismatchedPrimaries(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReconcilerRemoveImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := newTestReconciler(t, env)

	id := env.create(t, "Tote", catBags, "a.png", "b.png")
	rows, err := rec.ImagesAfter(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, rec.RemoveImage(ctx, rows[0]))

	detail, err := env.svc.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{rows[1].ImageURL}, detail.Images)
	assert.Equal(t, rows[1].ImageURL, detail.Image)

	keys, err := rec.ReferencedKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{rows[1].ImageURL}, keys)
}

func TestReconcilerRenameCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := newTestReconciler(t, env)

	env.create(t, "Old", "包类", "a.png")
	n, err := rec.RenameCategory(ctx, "包类", catBags)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	res, err := env.svc.ListProducts(ctx, ListProductsInput{Category: catBags})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
}

func TestReconcilerImportSkipsExistingNames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := newTestReconciler(t, env)

	env.create(t, "Existing", catBags, "a.png")

	res, err := rec.Import(ctx, []SeedProduct{
		{Name: "Existing", Category: catBags, Images: []string{"x/1.png"}},
		{Name: "Seeded Mat", Category: catYogaWear, Images: []string{"mats/1.png", "mats/2.png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Existing"}, res.Skipped)
	require.Len(t, res.Created, 1)

	detail, err := env.svc.GetProduct(ctx, res.Created[0])
	require.NoError(t, err)
	assert.Equal(t, "Seeded_Mat", detail.Folder)
	assert.Equal(t, []string{"mats/1.png", "mats/2.png"}, detail.Images)
	assert.Equal(t, "mats/1.png", detail.Image)
	require.NotNil(t, detail.Features)
	assert.Equal(t, enums.DefaultFeatures(catYogaWear), *detail.Features)
}

package product

import (
	"context"
	"fmt"

	"github.com/angelmondragon/catalog-backend/pkg/db"
	"github.com/angelmondragon/catalog-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Reconciler repairs gallery state for background jobs and tooling.
type Reconciler struct {
	repo     *Repository
	dbClient *db.Client
}

func NewReconciler(repo *Repository, dbClient *db.Client) (*Reconciler, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &Reconciler{repo: repo, dbClient: dbClient}, nil
}

// ReferencedKeys returns every storage key a gallery row points at.
func (r *Reconciler) ReferencedKeys(ctx context.Context) ([]string, error) {
	return r.repo.AllImageKeys(ctx)
}

// ImagesAfter pages through gallery rows ordered by id.
func (r *Reconciler) ImagesAfter(ctx context.Context, afterID int64, limit int) ([]models.ProductImage, error) {
	return r.repo.ImagesAfter(ctx, afterID, limit)
}

// MismatchedPrimaries lists products whose primary image is out of sync.
func (r *Reconciler) MismatchedPrimaries(ctx context.Context) ([]int64, error) {
	return r.repo.ProductsWithMismatchedPrimary(ctx)
}

// ResyncPrimaryImage re-asserts one product's primary image.
func (r *Reconciler) ResyncPrimaryImage(ctx context.Context, productID int64) (string, error) {
	var primary string
	err := r.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		primary, err = resyncPrimaryImage(ctx, r.repo.WithTx(tx), productID)
		return err
	})
	return primary, err
}

// RemoveImage drops a gallery row whose blob is gone and compacts the gallery.
func (r *Reconciler) RemoveImage(ctx context.Context, image models.ProductImage) error {
	return r.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)
		if err := repo.DeleteImageByID(ctx, image.ID); err != nil {
			return storageError(err, "delete product image")
		}
		return compactGallery(ctx, repo, image.ProductID)
	})
}

// RenameCategory moves products between categories and reports how many moved.
func (r *Reconciler) RenameCategory(ctx context.Context, from, to string) (int64, error) {
	n, err := r.repo.RenameCategory(ctx, from, to)
	if err != nil {
		return 0, storageError(err, "rename category")
	}
	return n, nil
}

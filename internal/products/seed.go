package product

import (
	"context"
	"strings"

	"github.com/angelmondragon/catalog-backend/internal/media"
	"github.com/angelmondragon/catalog-backend/pkg/db/models"
	"github.com/angelmondragon/catalog-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/catalog-backend/pkg/errors"
	"gorm.io/gorm"
)

// SeedProduct is one product of a bulk import whose images already live in
// the object store.
type SeedProduct struct {
	Name     string   `json:"name" validate:"required"`
	Category string   `json:"category" validate:"required"`
	Folder   string   `json:"folder"`
	Features string   `json:"features"`
	Images   []string `json:"images" validate:"required,min=1,dive,required"`
}

// ImportResult reports what a bulk import did.
type ImportResult struct {
	Created []int64  `json:"created"`
	Skipped []string `json:"skipped"`
}

// Import inserts every seed whose name is not taken yet. Empty features are
// filled with the category default.
func (r *Reconciler) Import(ctx context.Context, seeds []SeedProduct) (*ImportResult, error) {
	result := &ImportResult{}
	for _, seed := range seeds {
		name := strings.TrimSpace(seed.Name)
		category := enums.NormalizeCategory(seed.Category)
		if name == "" || category == "" {
			return result, pkgerrors.New(pkgerrors.CodeValidation, msgNameCategoryRequired)
		}
		if len(seed.Images) == 0 {
			return result, pkgerrors.New(pkgerrors.CodeValidation, msgImageRequired).WithDetails(map[string]string{"name": name})
		}

		exists, err := r.repo.ExistsByName(ctx, name)
		if err != nil {
			return result, storageError(err, "check product name")
		}
		if exists {
			result.Skipped = append(result.Skipped, name)
			continue
		}

		features := strings.TrimSpace(seed.Features)
		if features == "" {
			features = enums.DefaultFeatures(category)
		}
		folder := strings.TrimSpace(seed.Folder)
		if folder == "" {
			folder = media.FolderFromName(name)
		}

		product := &models.Product{
			Name:     name,
			Category: category,
			Folder:   folder,
			Features: &features,
			Image:    seed.Images[0],
		}
		err = r.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
			repo := r.repo.WithTx(tx)
			if _, err := repo.CreateProduct(ctx, product); err != nil {
				return storageError(err, "insert product")
			}
			if err := repo.CreateImages(ctx, imageRows(product.ID, seed.Images, 0)); err != nil {
				return storageError(err, "insert product images")
			}
			_, err := resyncPrimaryImage(ctx, repo, product.ID)
			return err
		})
		if err != nil {
			return result, err
		}
		result.Created = append(result.Created, product.ID)
	}
	return result, nil
}

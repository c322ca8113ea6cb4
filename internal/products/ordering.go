package product

import (
	"context"

	"github.com/angelmondragon/catalog-backend/pkg/db/models"
	"github.com/angelmondragon/catalog-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/catalog-backend/pkg/errors"
	"gorm.io/gorm"
)

const msgNotInCategory = "Product not found in category"

// SetDisplayOrderInput positions one product. With a category the product is
// moved inside that category and the category is renumbered 1..N; without one
// the value is written as is.
type SetDisplayOrderInput struct {
	Order    int
	Category string
}

// ProductOrder is one entry of a batch reorder.
type ProductOrder struct {
	ID           int64 `json:"id" validate:"required"`
	DisplayOrder int   `json:"display_order"`
}

func (s *service) SetDisplayOrder(ctx context.Context, id int64, input SetDisplayOrderInput) error {
	category := enums.NormalizeCategory(input.Category)

	var touched []int64
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return lookupError(err, msgProductNotFound)
		}

		if category == "" {
			touched = []int64{id}
			if err := repo.SetDisplayOrder(ctx, id, input.Order); err != nil {
				return storageError(err, "update display order")
			}
			return nil
		}

		members, err := repo.ListByCategory(ctx, category)
		if err != nil {
			return storageError(err, "list category products")
		}
		ordered, ok := moveWithinCategory(members, id, input.Order)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, msgNotInCategory)
		}
		for i, p := range ordered {
			if p.DisplayOrder == i+1 {
				continue
			}
			if err := repo.SetDisplayOrder(ctx, p.ID, i+1); err != nil {
				return storageError(err, "update display order")
			}
			touched = append(touched, p.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateProduct(ctx, touched...)
	return nil
}

// moveWithinCategory removes id from members and reinserts it at position
// order (1-based), clamped to the valid range.
func moveWithinCategory(members []models.Product, id int64, order int) ([]models.Product, bool) {
	idx := -1
	for i, p := range members {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	moving := members[idx]
	rest := make([]models.Product, 0, len(members))
	rest = append(rest, members[:idx]...)
	rest = append(rest, members[idx+1:]...)

	target := order - 1
	if target < 0 {
		target = 0
	}
	if target > len(rest) {
		target = len(rest)
	}

	out := make([]models.Product, 0, len(members))
	out = append(out, rest[:target]...)
	out = append(out, moving)
	out = append(out, rest[target:]...)
	return out, true
}

// ReorderProducts writes every supplied display_order in one transaction.
func (s *service) ReorderProducts(ctx context.Context, orders []ProductOrder) error {
	if len(orders) == 0 {
		return nil
	}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, o := range orders {
			if err := repo.SetDisplayOrder(ctx, o.ID, o.DisplayOrder); err != nil {
				return storageError(err, "update display order")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	s.invalidateProduct(ctx, ids...)
	return nil
}

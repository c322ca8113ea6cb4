package product

import (
	"strings"

	"github.com/angelmondragon/catalog-backend/pkg/enums"
	"github.com/angelmondragon/catalog-backend/pkg/pagination"
)

// ListProductsInput captures the browse filters. Nil page values fall back to defaults.
type ListProductsInput struct {
	Category string
	Search   string
	Page     *int
	PageSize *int
}

func (in ListProductsInput) categoryFilter() string {
	if enums.IsAllCategory(in.Category) {
		return ""
	}
	return enums.NormalizeCategory(in.Category)
}

func (in ListProductsInput) searchFilter() string {
	return strings.TrimSpace(in.Search)
}

func (in ListProductsInput) pagination() (pagination.Params, error) {
	return pagination.Normalize(in.Page, in.PageSize)
}

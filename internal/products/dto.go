package product

import (
	"time"

	"github.com/angelmondragon/catalog-backend/pkg/db/models"
)

// ProductSummaryDTO is one row of the catalog listing. Images carries only the
// primary image to keep list payloads small.
type ProductSummaryDTO struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Image        string    `json:"image"`
	Category     string    `json:"category"`
	Folder       string    `json:"folder"`
	Features     *string   `json:"features"`
	CreatedAt    time.Time `json:"created_at"`
	DisplayOrder int       `json:"display_order"`
	Images       []string  `json:"images"`
}

// ProductDetailDTO is the full product with its ordered gallery.
type ProductDetailDTO struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Image        string    `json:"image"`
	Category     string    `json:"category"`
	Folder       string    `json:"folder"`
	Features     *string   `json:"features"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	DisplayOrder int       `json:"display_order"`
	Images       []string  `json:"images"`
}

// ProductListResult is the paged listing payload.
type ProductListResult struct {
	Products   []ProductSummaryDTO `json:"products"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
}

// NewProductSummaryDTO builds a listing row from the persisted model.
func NewProductSummaryDTO(product models.Product) ProductSummaryDTO {
	return ProductSummaryDTO{
		ID:           product.ID,
		Name:         product.Name,
		Image:        product.Image,
		Category:     product.Category,
		Folder:       product.Folder,
		Features:     product.Features,
		CreatedAt:    product.CreatedAt,
		DisplayOrder: product.DisplayOrder,
		Images:       []string{product.Image},
	}
}

// NewProductDetailDTO builds the detail payload; images must already be ordered.
func NewProductDetailDTO(product *models.Product) *ProductDetailDTO {
	images := make([]string, 0, len(product.Images))
	for _, img := range product.Images {
		images = append(images, img.ImageURL)
	}
	return &ProductDetailDTO{
		ID:           product.ID,
		Name:         product.Name,
		Image:        product.Image,
		Category:     product.Category,
		Folder:       product.Folder,
		Features:     product.Features,
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
		DisplayOrder: product.DisplayOrder,
		Images:       images,
	}
}

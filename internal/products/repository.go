package product

import (
	"context"
	"strings"

	"github.com/angelmondragon/catalog-backend/internal/repo"
	"github.com/angelmondragon/catalog-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ListQuery filters and pages the catalog listing.
type ListQuery struct {
	Category string
	Search   string
	Offset   int
	Limit    int
}

// Repository wires together all product-related persistence helpers.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// List returns one page of products plus the unpaged total.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]models.Product, int64, error) {
	base := r.DB(ctx).Model(&models.Product{})
	if q.Category != "" {
		base = base.Where("category = ?", q.Category)
	}
	if q.Search != "" {
		base = base.Where("LOWER(name) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(q.Search))+"%")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if int64(q.Offset) >= total {
		return []models.Product{}, total, nil
	}

	var rows []models.Product
	err := base.Session(&gorm.Session{}).
		Order("display_order ASC").
		Order("created_at DESC").
		Order("id DESC").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetDetail loads the product with its gallery ordered for display.
func (r *Repository) GetDetail(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := r.DB(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC").Order("id ASC")
		}).
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ExistsByName reports whether a product with exactly this name is stored.
func (r *Repository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Product{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.DB(ctx).Omit("Images").Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateFields applies the provided column values to a product.
func (r *Repository) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	return r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields).Error
}

// SetDisplayOrder writes one product's display_order without touching updated_at.
func (r *Repository) SetDisplayOrder(ctx context.Context, id int64, order int) error {
	return r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).UpdateColumn("display_order", order).Error
}

// SetPrimaryImage writes the cached primary image key.
func (r *Repository) SetPrimaryImage(ctx context.Context, id int64, key string) error {
	return r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).UpdateColumn("image", key).Error
}

// ListByCategory returns the category members in display order.
func (r *Repository) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	var rows []models.Product
	err := r.DB(ctx).
		Where("category = ?", category).
		Order("display_order ASC").
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).
		Error
	return rows, err
}

// RenameCategory moves every product in one category to another.
func (r *Repository) RenameCategory(ctx context.Context, from, to string) (int64, error) {
	res := r.DB(ctx).Model(&models.Product{}).Where("category = ?", from).UpdateColumn("category", to)
	return res.RowsAffected, res.Error
}

// DeleteProduct removes a product and its image rows.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	tx := r.DB(ctx)
	if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Product{}).Error
}

// CreateImages inserts gallery rows.
func (r *Repository) CreateImages(ctx context.Context, images []models.ProductImage) error {
	if len(images) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&images).Error
}

// ListImages returns the product gallery ordered for display.
func (r *Repository) ListImages(ctx context.Context, productID int64) ([]models.ProductImage, error) {
	var rows []models.ProductImage
	err := r.DB(ctx).
		Where("product_id = ?", productID).
		Order("display_order ASC").
		Order("id ASC").
		Find(&rows).
		Error
	return rows, err
}

// CountImages returns the gallery size.
func (r *Repository) CountImages(ctx context.Context, productID int64) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.ProductImage{}).Where("product_id = ?", productID).Count(&count).Error
	return count, err
}

// FindImage loads one gallery row by its storage key.
func (r *Repository) FindImage(ctx context.Context, productID int64, key string) (*models.ProductImage, error) {
	var image models.ProductImage
	err := r.DB(ctx).
		Where("product_id = ? AND image_url = ?", productID, key).
		First(&image).
		Error
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// DeleteImageByID removes a single gallery row.
func (r *Repository) DeleteImageByID(ctx context.Context, id int64) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.ProductImage{}).Error
}

// SetImageOrder writes display_order for the image row with the given key.
func (r *Repository) SetImageOrder(ctx context.Context, productID int64, key string, order int) error {
	return r.DB(ctx).
		Model(&models.ProductImage{}).
		Where("product_id = ? AND image_url = ?", productID, key).
		UpdateColumn("display_order", order).
		Error
}

// AllImageKeys returns every storage key referenced by a gallery row.
func (r *Repository) AllImageKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.DB(ctx).Model(&models.ProductImage{}).Pluck("image_url", &keys).Error
	return keys, err
}

// ImagesAfter pages through gallery rows by id for sweeps.
func (r *Repository) ImagesAfter(ctx context.Context, afterID int64, limit int) ([]models.ProductImage, error) {
	var rows []models.ProductImage
	err := r.DB(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

const primaryMismatchQuery = `
SELECT p.id
FROM products p
LEFT JOIN (
  SELECT pi.product_id, pi.image_url
  FROM product_images pi
  WHERE pi.id = (
    SELECT pi2.id
    FROM product_images pi2
    WHERE pi2.product_id = pi.product_id
    ORDER BY pi2.display_order ASC, pi2.id ASC
    LIMIT 1
  )
) first_image ON first_image.product_id = p.id
WHERE p.image <> COALESCE(first_image.image_url, '')
ORDER BY p.id ASC
`

// ProductsWithMismatchedPrimary lists products whose cached primary image
// differs from their lowest ordered gallery row.
func (r *Repository) ProductsWithMismatchedPrimary(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.DB(ctx).Raw(primaryMismatchQuery).Scan(&ids).Error
	return ids, err
}

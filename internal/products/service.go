package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/catalog-backend/internal/media"
	"github.com/angelmondragon/catalog-backend/pkg/db"
	"github.com/angelmondragon/catalog-backend/pkg/db/models"
	"github.com/angelmondragon/catalog-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/catalog-backend/pkg/errors"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	msgNameCategoryRequired = "Name and category are required"
	msgImageRequired        = "At least one image is required"
	msgProductNotFound      = "Product not found"
)

// Service exposes catalog product operations.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id int64) (*ProductDetailDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (int64, error)
	UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) error
	DeleteProduct(ctx context.Context, id int64) error
	SetDisplayOrder(ctx context.Context, id int64, input SetDisplayOrderInput) error
	ReorderProducts(ctx context.Context, orders []ProductOrder) error
	DeleteImage(ctx context.Context, id int64, key string) error
	ReorderImages(ctx context.Context, id int64, keys []string) error
	Categories() []string
}

// Invalidator drops cached read responses after a mutation.
type Invalidator interface {
	InvalidateList(ctx context.Context) error
	InvalidateProduct(ctx context.Context, id int64) error
	InvalidateImages(ctx context.Context, keys ...string) error
}

// CreateProductInput holds the payload to create a product.
type CreateProductInput struct {
	Name     string
	Category string
	Features *string
	Folder   string
	Images   []media.Upload
}

// UpdateProductInput holds the metadata replacement and images to append.
// Appended images go under the product's stored folder.
type UpdateProductInput struct {
	Name     string
	Category string
	Features *string
	Images   []media.Upload
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateList(context.Context) error           { return nil }
func (noopInvalidator) InvalidateProduct(context.Context, int64) error { return nil }
func (noopInvalidator) InvalidateImages(context.Context, ...string) error { return nil }

// service implements the product service.
type service struct {
	repo        *Repository
	dbClient    *db.Client
	writer      *media.Writer
	validator   media.Validator
	invalidator Invalidator
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs a product service instance. A nil invalidator disables
// cache invalidation.
func NewService(repo *Repository, dbClient *db.Client, writer *media.Writer, validator media.Validator, invalidator Invalidator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if writer == nil {
		return nil, fmt.Errorf("media writer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &service{
		repo:        repo,
		dbClient:    dbClient,
		writer:      writer,
		validator:   validator,
		invalidator: invalidator,
		logg:        logg,
		now:         time.Now,
	}, nil
}

// ListProducts returns one page of the catalog.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	page, err := input.pagination()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	rows, total, err := s.repo.List(ctx, ListQuery{
		Category: input.categoryFilter(),
		Search:   input.searchFilter(),
		Offset:   page.Offset(),
		Limit:    page.PageSize,
	})
	if err != nil {
		return nil, storageError(err, "list products")
	}

	products := make([]ProductSummaryDTO, 0, len(rows))
	for _, row := range rows {
		products = append(products, NewProductSummaryDTO(row))
	}
	return &ProductListResult{
		Products:   products,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages(total),
	}, nil
}

// GetProduct loads a product with its full gallery.
func (s *service) GetProduct(ctx context.Context, id int64) (*ProductDetailDTO, error) {
	product, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgProductNotFound)
	}
	return NewProductDetailDTO(product), nil
}

// CreateProduct validates every upload, stores the blobs, then inserts the
// product and its gallery in one transaction.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (int64, error) {
	name := strings.TrimSpace(input.Name)
	category := enums.NormalizeCategory(input.Category)
	if name == "" || category == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, msgNameCategoryRequired)
	}

	uploads, err := s.validator.Filter(input.Images)
	if err != nil {
		return 0, err
	}
	if len(uploads) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, msgImageRequired)
	}

	folder := strings.TrimSpace(input.Folder)
	if folder == "" {
		folder = media.FolderFromName(name)
	}

	keys, err := s.writer.Put(ctx, folder, 0, uploads)
	if err != nil {
		s.logOrphans(ctx, keys, err)
		return 0, err
	}

	product := &models.Product{
		Name:     name,
		Category: category,
		Folder:   folder,
		Features: normalizeFeatures(input.Features),
		Image:    keys[0],
	}
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateProduct(ctx, product); err != nil {
			return storageError(err, "insert product")
		}
		if err := repo.CreateImages(ctx, imageRows(product.ID, keys, 0)); err != nil {
			return storageError(err, "insert product images")
		}
		_, err := resyncPrimaryImage(ctx, repo, product.ID)
		return err
	})
	if err != nil {
		s.logOrphans(ctx, keys, err)
		return 0, err
	}

	ctx = s.logg.WithProductID(ctx, product.ID)
	s.logg.Info(s.logg.WithField(ctx, "images", len(keys)), "product created")
	s.invalidateList(ctx)
	return product.ID, nil
}

// UpdateProduct replaces metadata and appends any new images after the
// current gallery.
func (s *service) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) error {
	name := strings.TrimSpace(input.Name)
	category := enums.NormalizeCategory(input.Category)
	if name == "" || category == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, msgNameCategoryRequired)
	}

	uploads, err := s.validator.Filter(input.Images)
	if err != nil {
		return err
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, msgProductNotFound)
	}

	var keys []string
	if len(uploads) > 0 {
		count, err := s.repo.CountImages(ctx, id)
		if err != nil {
			return storageError(err, "count product images")
		}
		folder := strings.TrimSpace(product.Folder)
		if folder == "" {
			folder = media.DefaultUpdateFolder
		}
		keys, err = s.writer.Put(ctx, folder, int(count), uploads)
		if err != nil {
			s.logOrphans(ctx, keys, err)
			return err
		}
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		err := repo.UpdateFields(ctx, id, map[string]any{
			"name":       name,
			"category":   category,
			"features":   normalizeFeatures(input.Features),
			"updated_at": s.now().UTC(),
		})
		if err != nil {
			return storageError(err, "update product")
		}
		if len(keys) > 0 {
			count, err := repo.CountImages(ctx, id)
			if err != nil {
				return storageError(err, "count product images")
			}
			if err := repo.CreateImages(ctx, imageRows(id, keys, int(count))); err != nil {
				return storageError(err, "insert product images")
			}
		}
		_, err = resyncPrimaryImage(ctx, repo, id)
		return err
	})
	if err != nil {
		s.logOrphans(ctx, keys, err)
		return err
	}

	s.invalidateProduct(ctx, id)
	return nil
}

// DeleteProduct removes blobs best-effort, then the rows.
func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	product, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return lookupError(err, msgProductNotFound)
	}
	ctx = s.logg.WithProductID(ctx, id)

	keys := make([]string, 0, len(product.Images))
	for _, img := range product.Images {
		keys = append(keys, img.ImageURL)
	}
	if err := s.writer.DeleteAll(ctx, keys); err != nil {
		s.logg.Error(ctx, "failed to delete product images from storage", err)
	}
	s.invalidateImages(ctx, keys...)

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteProduct(ctx, id); err != nil {
			return storageError(err, "delete product")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logg.Info(ctx, "product deleted")
	s.invalidateProduct(ctx, id)
	return nil
}

// Categories lists the advertised category names.
func (s *service) Categories() []string {
	cats := enums.ProductCategories()
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, c.String())
	}
	return out
}

func (s *service) invalidateList(ctx context.Context) {
	if err := s.invalidator.InvalidateList(ctx); err != nil {
		s.logg.Error(ctx, "failed to invalidate product list cache", err)
	}
}

func (s *service) invalidateProduct(ctx context.Context, ids ...int64) {
	for _, id := range ids {
		if err := s.invalidator.InvalidateProduct(ctx, id); err != nil {
			s.logg.Error(s.logg.WithProductID(ctx, id), "failed to invalidate product cache", err)
		}
	}
	s.invalidateList(ctx)
}

func (s *service) invalidateImages(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.invalidator.InvalidateImages(ctx, keys...); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "keys", keys), "failed to invalidate image cache", err)
	}
}

// logOrphans records blobs written for a request that did not commit; the
// orphan sweep removes them later.
func (s *service) logOrphans(ctx context.Context, keys []string, err error) {
	if len(keys) == 0 {
		return
	}
	s.logg.Error(s.logg.WithField(ctx, "orphaned_keys", keys), "product write failed after storing images", err)
}

func imageRows(productID int64, keys []string, start int) []models.ProductImage {
	rows := make([]models.ProductImage, 0, len(keys))
	for i, key := range keys {
		rows = append(rows, models.ProductImage{
			ProductID:    productID,
			ImageURL:     key,
			DisplayOrder: start + i,
		})
	}
	return rows
}

func normalizeFeatures(features *string) *string {
	if features == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*features)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func lookupError(err error, notFoundMessage string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
	}
	return storageError(err, "load product")
}

func storageError(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, fmt.Sprintf("%s: %v", op, err))
}

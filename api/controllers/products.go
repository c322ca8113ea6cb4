package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/catalog-backend/api/responses"
	"github.com/angelmondragon/catalog-backend/api/validators"
	"github.com/angelmondragon/catalog-backend/internal/cache"
	"github.com/angelmondragon/catalog-backend/internal/media"
	productsvc "github.com/angelmondragon/catalog-backend/internal/products"
	"github.com/angelmondragon/catalog-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/catalog-backend/pkg/errors"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/types"
)

const (
	maxSearchLength   = 100
	maxCategoryLength = 64

	msgProductNotFound = "Product not found"
)

type productDetailResponse struct {
	Product *productsvc.ProductDetailDTO `json:"product"`
}

// ListProducts returns one page of the catalog.
func ListProducts(svc productsvc.Service, cfg config.CacheConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParseOptionalQueryInt(r, "page")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pageSize, err := validators.ParseOptionalQueryInt(r, "pageSize")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		result, err := svc.ListProducts(r.Context(), productsvc.ListProductsInput{
			Category: validators.SanitizeString(query.Get("category"), maxCategoryLength),
			Search:   validators.SanitizeString(query.Get("search"), maxSearchLength),
			Page:     page,
			PageSize: pageSize,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Cache-Control", cache.SharedCacheControl(cfg.ListMaxAge, cfg.ListStale))
		responses.WriteSuccess(w, result)
	}
}

// GetProduct returns one product with its full gallery.
func GetProduct(svc productsvc.Service, cfg config.CacheConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := validators.ParsePathID(chi.URLParam(r, "id"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, msgProductNotFound))
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Cache-Control", cache.SharedCacheControl(cfg.DetailMaxAge, cfg.DetailStale))
		responses.WriteSuccess(w, productDetailResponse{Product: product})
	}
}

// CreateProduct handles the multipart product form.
func CreateProduct(svc productsvc.Service, mediaCfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := parseProductForm(w, r, mediaCfg.MaxFormBytes())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := svc.CreateProduct(r.Context(), productsvc.CreateProductInput{
			Name:     form.name,
			Category: form.category,
			Features: form.features,
			Folder:   form.folder,
			Images:   form.images,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := types.Acknowledge("Product created successfully")
		result.ProductID = &id
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// UpdateProduct replaces product metadata and appends uploaded images.
func UpdateProduct(svc productsvc.Service, mediaCfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := validators.ParsePathID(chi.URLParam(r, "id"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, msgProductNotFound))
			return
		}

		form, err := parseProductForm(w, r, mediaCfg.MaxFormBytes())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.UpdateProduct(r.Context(), id, productsvc.UpdateProductInput{
			Name:     form.name,
			Category: form.category,
			Features: form.features,
			Images:   form.images,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, types.Acknowledge("Product updated successfully"))
	}
}

// DeleteProduct removes a product, its gallery rows and its blobs.
func DeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := validators.ParsePathID(chi.URLParam(r, "id"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, msgProductNotFound))
			return
		}

		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, types.Acknowledge("Product deleted successfully"))
	}
}

type productForm struct {
	name     string
	category string
	features *string
	folder   string
	images   []media.Upload
}

func parseProductForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (productForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return productForm{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large").
				WithDetails(map[string]any{"max_bytes": maxBytes})
		}
		return productForm{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}

	form := productForm{
		name:     r.FormValue("name"),
		category: r.FormValue("category"),
		folder:   r.FormValue("folder"),
	}
	if values, ok := r.MultipartForm.Value["features"]; ok && len(values) > 0 {
		features := values[0]
		form.features = &features
	}
	for _, fh := range r.MultipartForm.File["images"] {
		form.images = append(form.images, media.FromFileHeader(fh))
	}
	return form, nil
}

package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/catalog-backend/api/responses"
	"github.com/angelmondragon/catalog-backend/api/validators"
	"github.com/angelmondragon/catalog-backend/internal/cache"
	productsvc "github.com/angelmondragon/catalog-backend/internal/products"
	pkgerrors "github.com/angelmondragon/catalog-backend/pkg/errors"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/storage"
	"github.com/angelmondragon/catalog-backend/pkg/types"
)

const msgImageNotFound = "Image not found"

// ObjectReader fetches stored blobs.
type ObjectReader interface {
	Get(ctx context.Context, key string) (*storage.Object, error)
}

// DeleteProductImage removes one gallery image by its storage key.
func DeleteProductImage(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := validators.ParsePathID(chi.URLParam(r, "id"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, msgProductNotFound))
			return
		}
		key := ImageKeyParam(r, "*")
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, msgImageNotFound))
			return
		}

		if err := svc.DeleteImage(r.Context(), id, key); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, types.Acknowledge("Image deleted successfully"))
	}
}

type reorderImagesRequest struct {
	Images json.RawMessage `json:"images"`
}

// ReorderProductImages rewrites the gallery order; the first key becomes the
// primary image.
func ReorderProductImages(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := validators.ParsePathID(chi.URLParam(r, "id"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, msgProductNotFound))
			return
		}

		var payload reorderImagesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var keys []string
		if !isJSONArray(payload.Images) || json.Unmarshal(payload.Images, &keys) != nil || len(keys) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Images array is required"))
			return
		}

		if err := svc.ReorderImages(r.Context(), id, keys); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, types.Acknowledge("Image order updated successfully"))
	}
}

// GetImage streams a stored image with long-lived cache headers.
func GetImage(store ObjectReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := ImageKeyParam(r, "*")
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, msgImageNotFound))
			return
		}

		obj, err := store.Get(r.Context(), key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, msgImageNotFound))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "image storage unavailable"))
			return
		}
		defer obj.Body.Close()

		h := w.Header()
		h.Set("Cache-Control", cache.ImmutableCacheControl)
		if obj.ETag != "" {
			h.Set("ETag", obj.ETag)
			if cache.ETagMatches(r.Header.Get("If-None-Match"), obj.ETag) {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		contentType := obj.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		if !obj.Updated.IsZero() {
			h.Set("Last-Modified", obj.Updated.UTC().Format(http.TimeFormat))
		}
		if obj.Size > 0 {
			h.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
		}
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.Copy(w, obj.Body); err != nil {
			logg.Warn(logg.WithField(r.Context(), "key", key), "image stream interrupted")
		}
	}
}

// ImageKeyParam returns the storage key captured by the named route
// parameter. chi routes on URL.RawPath when the request carries one, and
// only then is the captured value still escaped. Keys that fail to decode
// are used as given.
func ImageKeyParam(r *http.Request, name string) string {
	raw := strings.TrimPrefix(chi.URLParam(r, name), "/")
	if r.URL.RawPath == "" {
		return raw
	}
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/catalog-backend/api/responses"
	"github.com/angelmondragon/catalog-backend/api/validators"
	productsvc "github.com/angelmondragon/catalog-backend/internal/products"
	pkgerrors "github.com/angelmondragon/catalog-backend/pkg/errors"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/types"
)

type setDisplayOrderRequest struct {
	DisplayOrder json.RawMessage `json:"display_order"`
	Category     string          `json:"category"`
}

// SetDisplayOrder moves one product, optionally within its category.
func SetDisplayOrder(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := validators.ParsePathID(chi.URLParam(r, "id"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, msgProductNotFound))
			return
		}

		var payload setDisplayOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, ok := jsonNumber(payload.DisplayOrder)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "display_order must be a number"))
			return
		}

		err := svc.SetDisplayOrder(r.Context(), id, productsvc.SetDisplayOrderInput{
			Order:    order,
			Category: payload.Category,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, types.Acknowledge("Product order updated successfully"))
	}
}

type reorderProductsRequest struct {
	Products json.RawMessage `json:"products"`
}

type productOrders struct {
	Items []productsvc.ProductOrder `json:"products" validate:"dive"`
}

// ReorderProducts applies explicit display_order values to many products.
func ReorderProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload reorderProductsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !isJSONArray(payload.Products) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "products must be an array"))
			return
		}

		var orders productOrders
		if err := json.Unmarshal(payload.Products, &orders.Items); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid products entry").
				WithDetails(map[string]any{"error": err.Error()}))
			return
		}
		if err := validators.ValidateStruct(orders); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ReorderProducts(r.Context(), orders.Items); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, types.Acknowledge("Products order updated successfully"))
	}
}

// jsonNumber accepts any JSON number; fractional values are truncated.
func jsonNumber(raw json.RawMessage) (int, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, false
	}
	var value float64
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return 0, false
	}
	return int(value), true
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

package controllers

import (
	"net/http"

	"github.com/angelmondragon/catalog-backend/api/responses"
	productsvc "github.com/angelmondragon/catalog-backend/internal/products"
)

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

// ListCategories returns the advertised category names.
func ListCategories(svc productsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, categoriesResponse{Categories: svc.Categories()})
	}
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/catalog-backend/api/controllers"
	"github.com/angelmondragon/catalog-backend/api/middleware"
	"github.com/angelmondragon/catalog-backend/api/validators"
	"github.com/angelmondragon/catalog-backend/internal/cache"
	productsvc "github.com/angelmondragon/catalog-backend/internal/products"
	"github.com/angelmondragon/catalog-backend/pkg/config"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/metrics"
)

const (
	cacheKindList   = "list"
	cacheKindDetail = "detail"
	cacheKindImage  = "image"
)

// RouterParams carries the dependencies wired into the HTTP surface.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Products productsvc.Service
	Images   controllers.ObjectReader
	Cache    *cache.Cache
	// RateLimitStore may be nil, which falls back to per-process throttling.
	RateLimitStore middleware.RateLimitStore
	HTTPMetrics    *metrics.HTTPMetrics
	// Gatherer exposes /metrics when set.
	Gatherer        prometheus.Gatherer
	ReadinessChecks []controllers.ReadinessCheck
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger
	responseCache := p.Cache
	if responseCache == nil {
		responseCache = cache.New(nil, cfg.Cache, logg, nil)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.CORS.Origins()),
	)

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, p.ReadinessChecks...))
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	mutationPolicy := middleware.NewRateLimitPolicy("mutation", cfg.RateLimit.MutationWindow, cfg.RateLimit.MutationLimit)
	throttle := middleware.LocalRateLimit(mutationPolicy, logg)
	if p.RateLimitStore != nil {
		throttle = middleware.RateLimit(mutationPolicy, p.RateLimitStore, logg)
	}
	mutations := []func(http.Handler) http.Handler{
		throttle,
		middleware.AdminAuth(cfg.Admin, logg),
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", controllers.ListCategories(p.Products))

		r.Route("/products", func(r chi.Router) {
			r.With(responseCache.Handler(listPolicy(cfg.Cache))).
				Get("/", controllers.ListProducts(p.Products, cfg.Cache, logg))
			r.With(responseCache.Handler(detailPolicy(cfg.Cache))).
				Get("/{id}", controllers.GetProduct(p.Products, cfg.Cache, logg))

			r.Group(func(r chi.Router) {
				r.Use(mutations...)
				r.Post("/", controllers.CreateProduct(p.Products, cfg.Media, logg))
				r.Put("/reorder", controllers.ReorderProducts(p.Products, logg))
				r.Put("/{id}", controllers.UpdateProduct(p.Products, cfg.Media, logg))
				r.Delete("/{id}", controllers.DeleteProduct(p.Products, logg))
				r.Put("/{id}/order", controllers.SetDisplayOrder(p.Products, logg))
				r.Put("/{id}/images/reorder", controllers.ReorderProductImages(p.Products, logg))
				r.Delete("/{id}/images/*", controllers.DeleteProductImage(p.Products, logg))
			})
		})

		r.With(responseCache.Handler(imagePolicy(cfg.Cache))).
			Get("/images/*", controllers.GetImage(p.Images, logg))
	})

	return r
}

func listPolicy(cfg config.CacheConfig) cache.Policy {
	return cache.Policy{
		Kind: cacheKindList,
		TTL:  cfg.ListMaxAge + cfg.ListStale,
		Scopes: func(*http.Request) []string {
			return []string{cache.ScopeProductList}
		},
	}
}

func detailPolicy(cfg config.CacheConfig) cache.Policy {
	return cache.Policy{
		Kind: cacheKindDetail,
		TTL:  cfg.DetailMaxAge + cfg.DetailStale,
		Scopes: func(r *http.Request) []string {
			id, ok := validators.ParsePathID(chi.URLParam(r, "id"))
			if !ok {
				return nil
			}
			return []string{cache.ProductScope(id)}
		},
	}
}

// Image entries are keyed by storage key under a per-key scope that image
// and product deletes bump.
func imagePolicy(cfg config.CacheConfig) cache.Policy {
	return cache.Policy{
		Kind:     cacheKindImage,
		TTL:      cfg.ImageTTL,
		MaxBytes: cfg.ImageMaxCachedBytes,
		Scopes: func(r *http.Request) []string {
			key := controllers.ImageKeyParam(r, "*")
			if key == "" {
				return nil
			}
			return []string{cache.ImageScope(key)}
		},
		Key: func(r *http.Request) string {
			return controllers.ImageKeyParam(r, "*")
		},
	}
}

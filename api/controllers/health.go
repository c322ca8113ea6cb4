package controllers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/catalog-backend/api/responses"
	"github.com/angelmondragon/catalog-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/catalog-backend/pkg/errors"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
)

const (
	envHeader    = "X-Catalog-Env"
	readyTimeout = 3 * time.Second
)

// ReadinessCheck is one dependency probed by the readiness endpoint.
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency concurrently and answers 503 listing
// the ones that failed.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		failures := make([]error, len(checks))
		var g errgroup.Group
		for i, check := range checks {
			if check.Ping == nil {
				continue
			}
			i, check := i, check
			g.Go(func() error {
				failures[i] = check.Ping(ctx)
				return nil
			})
		}
		_ = g.Wait()

		details := map[string]string{}
		for i, err := range failures {
			if err != nil {
				details[checks[i].Name] = err.Error()
			}
		}
		if len(details) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(details))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

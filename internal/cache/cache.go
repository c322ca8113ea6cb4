package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/catalog-backend/pkg/config"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/catalog-backend/pkg/redis"
)

// Backend is the subset of the Redis client the response cache uses.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	CacheKey(parts ...string) string
	GenerationKey(scope string) string
}

// Policy describes how one route is cached.
type Policy struct {
	Kind string
	TTL  time.Duration
	// MaxBytes skips storing bodies larger than this when positive.
	MaxBytes int64
	// Scopes returns the generation scopes the response depends on.
	Scopes func(r *http.Request) []string
	// Key overrides the normalized request URL as cache key.
	Key func(r *http.Request) string
}

// Cache is a Redis-backed response cache. Entries are keyed by the
// generation of every scope they depend on, so bumping a generation makes
// all prior entries unreachable until they expire.
type Cache struct {
	backend      Backend
	logg         *logger.Logger
	metrics      *metrics.CacheMetrics
	group        singleflight.Group
	writeTimeout time.Duration
	invalidation time.Duration
	async        func(func())
}

// New builds the cache. A nil backend or disabled config yields a
// pass-through cache.
func New(backend Backend, cfg config.CacheConfig, logg *logger.Logger, m *metrics.CacheMetrics) *Cache {
	if !cfg.Enabled {
		backend = nil
	}
	return &Cache{
		backend:      backend,
		logg:         logg,
		metrics:      m,
		writeTimeout: nonZero(cfg.WriteTimeout, 2*time.Second),
		invalidation: nonZero(cfg.InvalidationDeadline, 2*time.Second),
		async:        func(fn func()) { go fn() },
	}
}

func nonZero(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// Enabled reports whether a backend is wired.
func (c *Cache) Enabled() bool {
	return c != nil && c.backend != nil
}

// Handler caches successful GET responses of next according to p.
func (c *Cache) Handler(p Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !c.Enabled() || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
				w.Header().Set(headerXCache, xCacheMiss)
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key, err := c.entryKey(ctx, p, r)
			if err != nil {
				c.metrics.Error("generation")
				c.logg.Error(ctx, "failed to read cache generation", err)
				w.Header().Set(headerXCache, xCacheMiss)
				next.ServeHTTP(w, r)
				return
			}

			if entry, ok := c.lookup(ctx, key); ok {
				c.metrics.Hit(p.Kind)
				entry.writeTo(w, r, xCacheHit)
				return
			}

			v, _, shared := c.group.Do(key, func() (any, error) {
				return c.compute(next, r, key, p), nil
			})
			if shared {
				c.metrics.Coalesced(p.Kind)
			} else {
				c.metrics.Miss(p.Kind)
			}
			v.(*Entry).writeTo(w, r, xCacheMiss)
		})
	}
}

// compute runs next once for key and schedules storage of a 200 response.
// The request is detached from the caller's cancellation because other
// waiters share its result, and stripped of conditional headers so the
// stored entry is always the full body.
func (c *Cache) compute(next http.Handler, r *http.Request, key string, p Policy) *Entry {
	req := r.Clone(context.WithoutCancel(r.Context()))
	req.Method = http.MethodGet
	req.Header.Del("If-None-Match")
	req.Header.Del("If-Modified-Since")

	rec := newRecorder()
	next.ServeHTTP(rec, req)
	entry := rec.entry()

	if entry.Status != http.StatusOK {
		return entry
	}
	if p.MaxBytes > 0 && int64(len(entry.Body)) > p.MaxBytes {
		return entry
	}
	c.store(req.Context(), key, entry, p.TTL)
	return entry
}

func (c *Cache) entryKey(ctx context.Context, p Policy, r *http.Request) (string, error) {
	parts := []string{p.Kind}
	if p.Scopes != nil {
		for _, scope := range p.Scopes(r) {
			gen, err := c.generation(ctx, scope)
			if err != nil {
				return "", err
			}
			parts = append(parts, scope+"@"+strconv.FormatInt(gen, 10))
		}
	}
	if p.Key != nil {
		parts = append(parts, p.Key(r))
	} else {
		parts = append(parts, NormalizeRequestKey(r.URL))
	}
	return c.backend.CacheKey(strings.Join(parts, "|")), nil
}

func (c *Cache) generation(ctx context.Context, scope string) (int64, error) {
	raw, err := c.backend.Get(ctx, c.backend.GenerationKey(scope))
	if err != nil {
		if pkgredis.IsNil(err) {
			return 0, nil
		}
		return 0, err
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return gen, nil
}

func (c *Cache) lookup(ctx context.Context, key string) (*Entry, bool) {
	raw, err := c.backend.GetBytes(ctx, key)
	if err != nil {
		if !pkgredis.IsNil(err) {
			c.metrics.Error("get")
			c.logg.Error(c.logg.WithField(ctx, "cache_key", key), "cache lookup failed", err)
		}
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.metrics.Error("decode")
		c.logg.Error(c.logg.WithField(ctx, "cache_key", key), "cache entry corrupt", err)
		return nil, false
	}
	return &entry, true
}

func (c *Cache) store(ctx context.Context, key string, entry *Entry, ttl time.Duration) {
	payload, err := json.Marshal(entry)
	if err != nil {
		c.metrics.Error("encode")
		return
	}
	c.async(func() {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.writeTimeout)
		defer cancel()
		if err := c.backend.Set(writeCtx, key, payload, ttl); err != nil {
			c.metrics.Error("set")
			c.logg.Error(c.logg.WithField(writeCtx, "cache_key", key), "cache store failed", err)
		}
	})
}

// InvalidateList makes every cached listing unreachable.
func (c *Cache) InvalidateList(ctx context.Context) error {
	return c.bump(ctx, ScopeProductList)
}

// InvalidateProduct makes every cached detail response of id unreachable.
func (c *Cache) InvalidateProduct(ctx context.Context, id int64) error {
	return c.bump(ctx, ProductScope(id))
}

// InvalidateImages makes cached bodies of the given storage keys unreachable.
// Every key is attempted; failures are combined.
func (c *Cache) InvalidateImages(ctx context.Context, keys ...string) error {
	var errs error
	for _, key := range keys {
		errs = multierr.Append(errs, c.bump(ctx, ImageScope(key)))
	}
	return errs
}

func (c *Cache) bump(ctx context.Context, scope string) error {
	if !c.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.invalidation)
	defer cancel()
	if _, err := c.backend.Incr(ctx, c.backend.GenerationKey(scope)); err != nil {
		c.metrics.Error("invalidate")
		return err
	}
	return nil
}

package cache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/catalog-backend/pkg/config"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/catalog-backend/pkg/redis"
)

type fakeBackend struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeBackend) Get(_ context.Context, key string) (string, error) {
	b, err := f.GetBytes(context.Background(), key)
	return string(b), err
}

func (f *fakeBackend) GetBytes(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return nil, errors.New("connection refused")
	}
	v, ok := f.data[key]
	if !ok {
		return nil, pkgredis.Nil
	}
	return v, nil
}

func (f *fakeBackend) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	}
	f.ttls[key] = ttl
	return nil
}

func (f *fakeBackend) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.ParseInt(string(f.data[key]), 10, 64)
	n++
	f.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (f *fakeBackend) CacheKey(parts ...string) string {
	return "catalog:cache:" + strings.Join(parts, ":")
}

func (f *fakeBackend) GenerationKey(scope string) string {
	return "catalog:gen:" + scope
}

func (f *fakeBackend) entries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.data {
		if strings.HasPrefix(k, "catalog:cache:") {
			n++
		}
	}
	return n
}

func newTestCache(t *testing.T, backend Backend) *Cache {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	c := New(backend, config.CacheConfig{Enabled: true}, logg, nil)
	c.async = func(fn func()) { fn() }
	return c
}

func listPolicy() Policy {
	return Policy{
		Kind:   "list",
		TTL:    90 * time.Minute,
		Scopes: func(*http.Request) []string { return []string{ScopeProductList} },
	}
}

type countingHandler struct {
	calls  atomic.Int32
	status int
	body   string
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls.Add(1)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, s-maxage=1800, stale-while-revalidate=3600")
	status := h.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, h.body)
}

func do(h http.Handler, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerMissThenHit(t *testing.T) {
	backend := newFakeBackend()
	c := newTestCache(t, backend)
	next := &countingHandler{body: `{"products":[]}`}
	h := c.Handler(listPolicy())(next)

	first := do(h, "/api/products?page=1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := do(h, "/api/products?page=1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, `{"products":[]}`, second.Body.String())
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, "public, s-maxage=1800, stale-while-revalidate=3600", second.Header().Get("Cache-Control"))
	assert.EqualValues(t, 1, next.calls.Load())

	for k, ttl := range backend.ttls {
		if strings.HasPrefix(k, "catalog:cache:") {
			assert.Equal(t, 90*time.Minute, ttl)
		}
	}
}

func TestHandlerIgnoresCacheBustingParams(t *testing.T) {
	c := newTestCache(t, newFakeBackend())
	next := &countingHandler{body: "ok"}
	h := c.Handler(listPolicy())(next)

	do(h, "/api/products?page=2&category=x&_t=111")
	res := do(h, "/api/products?timestamp=5&category=x&page=2&_=9")
	assert.Equal(t, "HIT", res.Header().Get("X-Cache"))
	assert.EqualValues(t, 1, next.calls.Load())
}

func TestInvalidateListBumpsGeneration(t *testing.T) {
	c := newTestCache(t, newFakeBackend())
	next := &countingHandler{body: "ok"}
	h := c.Handler(listPolicy())(next)

	do(h, "/api/products?category=a")
	do(h, "/api/products?category=b&search=mat")

	require.NoError(t, c.InvalidateList(context.Background()))

	assert.Equal(t, "MISS", do(h, "/api/products?category=a").Header().Get("X-Cache"))
	assert.Equal(t, "MISS", do(h, "/api/products?category=b&search=mat").Header().Get("X-Cache"))
	assert.EqualValues(t, 4, next.calls.Load())
}

func TestInvalidateProductOnlyAffectsThatProduct(t *testing.T) {
	c := newTestCache(t, newFakeBackend())
	next := &countingHandler{body: "detail"}
	policy := Policy{
		Kind: "detail",
		TTL:  3 * time.Hour,
		Scopes: func(r *http.Request) []string {
			id, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/products/"), 10, 64)
			return []string{ProductScope(id)}
		},
	}
	h := c.Handler(policy)(next)

	do(h, "/api/products/1")
	do(h, "/api/products/2")
	require.NoError(t, c.InvalidateProduct(context.Background(), 1))

	assert.Equal(t, "MISS", do(h, "/api/products/1").Header().Get("X-Cache"))
	assert.Equal(t, "HIT", do(h, "/api/products/2").Header().Get("X-Cache"))
}

func TestInvalidateImagesAffectsOnlyThoseKeys(t *testing.T) {
	c := newTestCache(t, newFakeBackend())
	next := &countingHandler{body: "png"}
	policy := Policy{
		Kind: "image",
		TTL:  time.Hour,
		Scopes: func(r *http.Request) []string {
			return []string{ImageScope(strings.TrimPrefix(r.URL.Path, "/api/images/"))}
		},
	}
	h := c.Handler(policy)(next)

	do(h, "/api/images/a.png")
	do(h, "/api/images/b.png")
	do(h, "/api/images/c.png")
	require.NoError(t, c.InvalidateImages(context.Background(), "a.png", "c.png"))

	assert.Equal(t, "MISS", do(h, "/api/images/a.png").Header().Get("X-Cache"))
	assert.Equal(t, "HIT", do(h, "/api/images/b.png").Header().Get("X-Cache"))
	assert.Equal(t, "MISS", do(h, "/api/images/c.png").Header().Get("X-Cache"))
	require.NoError(t, c.InvalidateImages(context.Background()))
}

func TestHandlerDoesNotStoreErrors(t *testing.T) {
	backend := newFakeBackend()
	c := newTestCache(t, backend)
	next := &countingHandler{status: http.StatusNotFound, body: `{"error":"Product not found"}`}
	h := c.Handler(listPolicy())(next)

	res := do(h, "/api/products/9")
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, `{"error":"Product not found"}`, res.Body.String())
	do(h, "/api/products/9")
	assert.EqualValues(t, 2, next.calls.Load())
	assert.Equal(t, 0, backend.entries())
}

func TestHandlerSkipsOversizeBodies(t *testing.T) {
	backend := newFakeBackend()
	c := newTestCache(t, backend)
	next := &countingHandler{body: strings.Repeat("x", 64)}
	h := c.Handler(Policy{Kind: "image", TTL: time.Hour, MaxBytes: 32})(next)

	do(h, "/api/images/a.png")
	assert.Equal(t, 0, backend.entries())
}

func TestHandlerAnswersConditionalRequestsFromCache(t *testing.T) {
	c := newTestCache(t, newFakeBackend())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("If-None-Match"))
		w.Header().Set("ETag", `"abc"`)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	})
	h := c.Handler(Policy{Kind: "image", TTL: time.Hour})(next)

	first := do(h, "/api/images/a.png", "If-None-Match", `"abc"`)
	assert.Equal(t, http.StatusNotModified, first.Code)
	assert.Empty(t, first.Body.String())

	second := do(h, "/api/images/a.png")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "png", second.Body.String())
	assert.Equal(t, `"abc"`, second.Header().Get("ETag"))
}

func TestHandlerCoalescesConcurrentMisses(t *testing.T) {
	c := newTestCache(t, newFakeBackend())
	release := make(chan struct{})
	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte("slow"))
	})
	h := c.Handler(listPolicy())(next)

	const n = 8
	var wg sync.WaitGroup
	bodies := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bodies[i] = do(h, "/api/products").Body.String()
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, body := range bodies {
		assert.Equal(t, "slow", body)
	}
}

func TestHandlerPassesThroughWhenBackendFails(t *testing.T) {
	backend := newFakeBackend()
	backend.failGet = true
	c := newTestCache(t, backend)
	next := &countingHandler{body: "ok"}
	h := c.Handler(listPolicy())(next)

	res := do(h, "/api/products")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "MISS", res.Header().Get("X-Cache"))
	assert.Equal(t, "ok", res.Body.String())
}

func TestDisabledCacheIsPassThrough(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	c := New(nil, config.CacheConfig{Enabled: true}, logg, nil)
	assert.False(t, c.Enabled())
	require.NoError(t, c.InvalidateList(context.Background()))

	next := &countingHandler{body: "ok"}
	h := c.Handler(listPolicy())(next)
	do(h, "/api/products")
	res := do(h, "/api/products")
	assert.Equal(t, "MISS", res.Header().Get("X-Cache"))
	assert.EqualValues(t, 2, next.calls.Load())

	off := New(newFakeBackend(), config.CacheConfig{Enabled: false}, logg, nil)
	assert.False(t, off.Enabled())
}

func TestNormalizeRequestKey(t *testing.T) {
	u, err := url.Parse("/api/products?pageSize=12&_t=1&category=%E3%83%A8%E3%82%AC&page=1")
	require.NoError(t, err)
	assert.Equal(t, "/api/products?category=%E3%83%A8%E3%82%AC&page=1&pageSize=12", NormalizeRequestKey(u))

	bare, err := url.Parse("/api/products/3?t=9")
	require.NoError(t, err)
	assert.Equal(t, "/api/products/3", NormalizeRequestKey(bare))
}

func TestSharedCacheControl(t *testing.T) {
	assert.Equal(t, "public, s-maxage=1800, stale-while-revalidate=3600", SharedCacheControl(30*time.Minute, time.Hour))
}

func TestETagMatches(t *testing.T) {
	assert.True(t, ETagMatches(`"a", "b"`, `"b"`))
	assert.True(t, ETagMatches(`W/"b"`, `"b"`))
	assert.True(t, ETagMatches("*", `"b"`))
	assert.False(t, ETagMatches("", `"b"`))
	assert.False(t, ETagMatches(`"c"`, `"b"`))
}

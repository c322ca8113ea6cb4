package gcs

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/catalog-backend/pkg/storage"
)

const objectPrefix = "/storage/v1/b/bucket/o/"

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
}

func newFakeServer(t *testing.T) (*httptest.Server, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: map[string]string{}, types: map[string]string{}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		bucket.mu.Lock()
		defer bucket.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/upload/storage/v1/b/bucket/o":
			body, _ := io.ReadAll(r.Body)
			name := r.URL.Query().Get("name")
			bucket.objects[name] = string(body)
			bucket.types[name] = r.Header.Get("Content-Type")
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodGet && r.URL.Path == "/storage/v1/b/bucket/o":
			writeListPage(w, r, bucket)
		case strings.HasPrefix(r.URL.Path, objectPrefix):
			key := strings.TrimPrefix(r.URL.Path, objectPrefix)
			data, ok := bucket.objects[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			if r.Method == http.MethodDelete {
				delete(bucket.objects, key)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.Header().Set("Content-Type", bucket.types[key])
			w.Header().Set("ETag", `"etag-1"`)
			_, _ = w.Write([]byte(data))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, bucket
}

// Serves one object per page so pagination is exercised.
func writeListPage(w http.ResponseWriter, r *http.Request, bucket *fakeBucket) {
	prefix := r.URL.Query().Get("prefix")
	var keys []string
	for key := range bucket.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	start := 0
	if tok := r.URL.Query().Get("pageToken"); tok != "" {
		for i, k := range keys {
			if k == tok {
				start = i
			}
		}
	}
	resp := map[string]any{"items": []map[string]any{}}
	if start < len(keys) {
		resp["items"] = []map[string]any{{
			"name":    keys[start],
			"size":    "3",
			"updated": "2024-05-01T00:00:00Z",
		}}
		if start+1 < len(keys) {
			resp["nextPageToken"] = keys[start+1]
		}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(srv *httptest.Server) *Client {
	return &Client{
		httpClient:  srv.Client(),
		endpoint:    srv.URL,
		bucket:      "bucket",
		tokenSource: newStaticTokenSource("test-token"),
	}
}

func TestPutGetDelete(t *testing.T) {
	srv, bucket := newFakeServer(t)
	client := newTestClient(srv)
	ctx := context.Background()

	key := "bags/1700000000000_0_トート.png"
	require.NoError(t, client.Put(ctx, key, "image/png", strings.NewReader("png"), 3))
	assert.Equal(t, "png", bucket.objects[key])

	obj, err := client.Get(ctx, key)
	require.NoError(t, err)
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, `"etag-1"`, obj.ETag)

	require.NoError(t, client.Delete(ctx, key))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, client.Delete(ctx, key), storage.ErrNotFound)
}

func TestListFollowsPages(t *testing.T) {
	srv, _ := newFakeServer(t)
	client := newTestClient(srv)
	ctx := context.Background()

	for _, key := range []string{"yoga/a.png", "yoga/b.png", "bags/c.png"} {
		require.NoError(t, client.Put(ctx, key, "image/png", strings.NewReader("abc"), 3))
	}

	items, err := client.List(ctx, "yoga/")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "yoga/a.png", items[0].Key)
	assert.Equal(t, "yoga/b.png", items[1].Key)
	assert.Equal(t, int64(3), items[0].Size)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), items[0].Updated.UTC())
}

func TestPingReportsStatus(t *testing.T) {
	srv, _ := newFakeServer(t)
	client := newTestClient(srv)
	require.NoError(t, client.Ping(context.Background()))

	client.tokenSource = newStaticTokenSource("wrong")
	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestUninitializedClient(t *testing.T) {
	var client *Client
	assert.Error(t, client.Ping(context.Background()))
	_, err := (&Client{}).Get(context.Background(), "x")
	assert.Error(t, err)
}

func TestSignAssertion(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	now := time.Now()
	signed, err := signAssertion("signer@example.com", tokenEndpoint, key, now)
	require.NoError(t, err)

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithAudience(tokenEndpoint))
	require.NoError(t, err)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "signer@example.com", claims["iss"])
	assert.Equal(t, scope, claims["scope"])
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, defaultEndpoint, normalizeEndpoint(""))
	assert.Equal(t, "http://localhost:4443", normalizeEndpoint("http://localhost:4443/"))
}

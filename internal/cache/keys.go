package cache

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const (
	ScopeProductList = "products:list"

	headerXCache = "X-Cache"
	xCacheHit    = "HIT"
	xCacheMiss   = "MISS"
)

// cacheBustParams are query parameters clients append to defeat browser
// caches; they never change the response.
var cacheBustParams = []string{"_t", "t", "_", "timestamp"}

// ProductScope is the generation scope of one product's detail entries.
func ProductScope(id int64) string {
	return "products:" + strconv.FormatInt(id, 10)
}

// ImageScope is the generation scope of one stored image. Keys are unique
// per upload, so only a delete ever needs to bump it.
func ImageScope(key string) string {
	return "images:" + key
}

// NormalizeRequestKey returns the path plus the sorted query without
// cache-busting parameters.
func NormalizeRequestKey(u *url.URL) string {
	q := u.Query()
	for _, p := range cacheBustParams {
		q.Del(p)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if encoded := q.Encode(); encoded != "" {
		return path + "?" + encoded
	}
	return path
}

// SharedCacheControl renders the Cache-Control value used for CDN-cacheable
// JSON responses.
func SharedCacheControl(maxAge, stale time.Duration) string {
	return fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", int(maxAge.Seconds()), int(stale.Seconds()))
}

// ImmutableCacheControl is the Cache-Control value for content-addressed blobs.
const ImmutableCacheControl = "public, max-age=31536000, immutable"

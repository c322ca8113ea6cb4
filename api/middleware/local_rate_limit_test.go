package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalRateLimitBlocksBurstPerClient(t *testing.T) {
	handler := LocalRateLimit(NewRateLimitPolicy("mutation", time.Hour, 2), testLogger())(okHandler)

	send := func(method, ip string) int {
		req := httptest.NewRequest(method, "/api/products", nil)
		req.RemoteAddr = ip + ":4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodPost, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, send(http.MethodPost, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, send(http.MethodPost, "10.0.0.2"))
}

func TestLocalLimitersRefillAndPrune(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiters := newLocalLimiters(NewRateLimitPolicy("mutation", time.Minute, 1))
	limiters.now = func() time.Time { return now }

	assert.True(t, limiters.allow("a"))
	assert.False(t, limiters.allow("a"))

	now = now.Add(time.Minute)
	assert.True(t, limiters.allow("a"))

	now = now.Add(2 * localLimiterIdle)
	limiters.allow("b")
	_, kept := limiters.clients["a"]
	assert.False(t, kept)
}

func TestLocalRateLimitDisabledPolicy(t *testing.T) {
	handler := LocalRateLimit(NewRateLimitPolicy("mutation", 0, 0), nil)(okHandler)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

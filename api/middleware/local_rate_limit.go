package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/angelmondragon/catalog-backend/pkg/logger"
)

const localLimiterIdle = 10 * time.Minute

type localLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiters keeps one token bucket per client IP for a single process.
type localLimiters struct {
	mu      sync.Mutex
	policy  RateLimitPolicy
	clients map[string]*localLimiter
	now     func() time.Time
	sweptAt time.Time
}

func newLocalLimiters(policy RateLimitPolicy) *localLimiters {
	return &localLimiters{
		policy:  policy,
		clients: map[string]*localLimiter{},
		now:     time.Now,
	}
}

func (l *localLimiters) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.sweptAt) > localLimiterIdle {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) > localLimiterIdle {
				delete(l.clients, key)
			}
		}
		l.sweptAt = now
	}

	c, ok := l.clients[ip]
	if !ok {
		every := rate.Every(l.policy.window / time.Duration(l.policy.limit))
		c = &localLimiter{limiter: rate.NewLimiter(every, l.policy.limit)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// LocalRateLimit throttles mutations per client IP with an in-process token
// bucket. It backs single-instance deployments that run without redis; the
// burst equals the policy limit and tokens refill evenly across the window.
func LocalRateLimit(policy RateLimitPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() {
			return next
		}
		limiters := newLocalLimiters(policy)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			ip := clientIP(r)
			if !limiters.allow(ip) {
				respondRateLimited(r.Context(), logg, w, policy, ip, int64(policy.limit)+1)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics counts response cache outcomes per kind (list, detail, image).
type CacheMetrics struct {
	lookups   *prometheus.CounterVec
	coalesced *prometheus.CounterVec
	errors    *prometheus.CounterVec
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	if reg == nil {
		return &CacheMetrics{}
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "cache_lookups_total",
		Help:      "Response cache lookups by result.",
	}, []string{"kind", "result"})
	coalesced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "cache_coalesced_total",
		Help:      "Cache misses served by another in-flight computation.",
	}, []string{"kind"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "cache_errors_total",
		Help:      "Cache backend failures by operation.",
	}, []string{"op"})
	reg.MustRegister(lookups, coalesced, errs)
	return &CacheMetrics{lookups: lookups, coalesced: coalesced, errors: errs}
}

func (c *CacheMetrics) Hit(kind string) {
	if c == nil || c.lookups == nil {
		return
	}
	c.lookups.WithLabelValues(normalizeLabel(kind), "hit").Inc()
}

func (c *CacheMetrics) Miss(kind string) {
	if c == nil || c.lookups == nil {
		return
	}
	c.lookups.WithLabelValues(normalizeLabel(kind), "miss").Inc()
}

func (c *CacheMetrics) Coalesced(kind string) {
	if c == nil || c.coalesced == nil {
		return
	}
	c.coalesced.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (c *CacheMetrics) Error(op string) {
	if c == nil || c.errors == nil {
		return
	}
	c.errors.WithLabelValues(normalizeLabel(op)).Inc()
}

package mapbox

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/hazard-fusion-service/internal/adapter/cache"
	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	"github.com/couchcryptid/hazard-fusion-service/internal/observability"
)

// CachedGeocoder wraps a Geocoder with a shared cache store.
type CachedGeocoder struct {
	inner   domain.Geocoder
	store   cache.Store
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, store cache.Store, ttl time.Duration, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		store:   store,
		ttl:     ttl,
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("geo:rev:%.4f,%.4f", lat, lon)
	if v, ok := c.store.Get(ctx, key); ok {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return string(v), nil
	}
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()

	name, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if name != "" {
		c.store.Set(ctx, key, []byte(name), c.ttl)
	}
	return name, nil
}

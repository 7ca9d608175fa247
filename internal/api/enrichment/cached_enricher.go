package enrichment

import (
	"context"
	"time"

	"github.com/maypok86/otter/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Enricher = (*CachedEnricher)(nil)

// CachedEnricher memoizes successful lookups of another Enricher. Errors and
// unknown places are not cached.
type CachedEnricher struct {
	next  Enricher
	cache *otter.Cache[string, *types.PlaceDetails]
}

func NewCachedEnricher(next Enricher, size int, ttl time.Duration) *CachedEnricher {
	if size <= 0 {
		size = 10_000
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &CachedEnricher{
		next: next,
		cache: otter.Must(&otter.Options[string, *types.PlaceDetails]{
			MaximumSize:      size,
			ExpiryCalculator: otter.ExpiryWriting[string, *types.PlaceDetails](ttl),
		}),
	}
}

func (c *CachedEnricher) Details(ctx context.Context, placeRef string) (*types.PlaceDetails, error) {
	if d, ok := c.cache.GetIfPresent(placeRef); ok {
		record(ctx, "hit")
		return d, nil
	}
	d, err := c.next.Details(ctx, placeRef)
	if err != nil {
		record(ctx, "error")
		return nil, err
	}
	record(ctx, "miss")
	if d != nil {
		c.cache.Set(placeRef, d)
	}
	return d, nil
}

// Invalidate drops a cached place.
func (c *CachedEnricher) Invalidate(placeRef string) {
	c.cache.Invalidate(placeRef)
}

func record(ctx context.Context, result string) {
	metrics.Get().EnrichmentLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

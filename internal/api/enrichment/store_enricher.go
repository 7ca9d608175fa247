package enrichment

import (
	"context"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Enricher = (*StoreEnricher)(nil)

// DetailsSource is satisfied by the place repository.
type DetailsSource interface {
	DetailsByRef(ctx context.Context, placeRef string) (*types.PlaceDetails, error)
}

// StoreEnricher reads details from the stored place catalogue.
type StoreEnricher struct {
	source DetailsSource
}

func NewStoreEnricher(source DetailsSource) *StoreEnricher {
	return &StoreEnricher{source: source}
}

func (e *StoreEnricher) Details(ctx context.Context, placeRef string) (*types.PlaceDetails, error) {
	return e.source.DetailsByRef(ctx, placeRef)
}

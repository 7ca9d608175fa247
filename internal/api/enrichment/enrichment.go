package enrichment

import (
	"context"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Enricher looks up presentation and availability data for a place.
type Enricher interface {
	Details(ctx context.Context, placeRef string) (*types.PlaceDetails, error)
}

// RefFor returns the reference used to look a candidate up.
func RefFor(c types.CandidateActivity) string {
	if c.PlaceRef != "" {
		return c.PlaceRef
	}
	return c.ID
}

// NeedsDetails reports whether scheduling would benefit from a lookup:
// opening hours, price tier or rating are missing.
func NeedsDetails(c types.CandidateActivity) bool {
	return !c.OpeningHours.HasData() || c.PriceTier == 0 || c.Rating == 0
}

// Fill copies scheduling-relevant fields the candidate lacks from d. Fields the
// candidate already carries are never overwritten.
func Fill(c types.CandidateActivity, d *types.PlaceDetails) types.CandidateActivity {
	if d == nil {
		return c
	}
	if !c.OpeningHours.HasData() && d.OpeningHours.HasData() && d.OpeningHours.Validate() == nil {
		c.OpeningHours = append(types.OpeningHours(nil), d.OpeningHours...)
	}
	if c.PriceTier == 0 && d.PriceTier >= types.MinPriceTier && d.PriceTier <= types.MaxPriceTier {
		c.PriceTier = d.PriceTier
	}
	if c.Rating == 0 && d.Rating > 0 && d.Rating <= 5 {
		c.Rating = d.Rating
		if c.ReviewCount == 0 && d.ReviewCount > 0 {
			c.ReviewCount = d.ReviewCount
		}
	}
	return c
}

var _ Enricher = NopEnricher{}

// NopEnricher knows nothing about any place.
type NopEnricher struct{}

func (NopEnricher) Details(context.Context, string) (*types.PlaceDetails, error) {
	return nil, nil
}

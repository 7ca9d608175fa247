package recommendation

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ PlaceRepository = (*MemoryPlaceRepository)(nil)

// MemoryPlaceRepository keeps city pools in process memory. It backs the
// memory storage driver and the command line tools.
type MemoryPlaceRepository struct {
	mu     sync.RWMutex
	cities map[string]map[string]types.CandidateActivity
}

func NewMemoryPlaceRepository() *MemoryPlaceRepository {
	return &MemoryPlaceRepository{cities: make(map[string]map[string]types.CandidateActivity)}
}

func (r *MemoryPlaceRepository) ListByCity(_ context.Context, cityID string) ([]types.CandidateActivity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pool := r.cities[cityID]
	out := make([]types.CandidateActivity, 0, len(pool))
	for _, p := range pool {
		out = append(out, clonePlace(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryPlaceRepository) DetailsByRef(_ context.Context, placeRef string) (*types.PlaceDetails, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, pool := range r.cities {
		for _, p := range pool {
			if p.PlaceRef == placeRef || p.ID == placeRef {
				return &types.PlaceDetails{
					OpeningHours: slices.Clone(p.OpeningHours),
					PriceTier:    p.PriceTier,
					Rating:       p.Rating,
					ReviewCount:  p.ReviewCount,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("place %q: %w", placeRef, types.ErrNotFound)
}

func (r *MemoryPlaceRepository) SavePlaces(_ context.Context, cityID string, places []types.CandidateActivity) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool, ok := r.cities[cityID]
	if !ok {
		pool = make(map[string]types.CandidateActivity)
		r.cities[cityID] = pool
	}
	written := 0
	for _, raw := range places {
		p := raw.WithDefaults()
		if err := p.Validate(); err != nil {
			continue
		}
		pool[p.ID] = clonePlace(p)
		written++
	}
	return written, nil
}

func clonePlace(p types.CandidateActivity) types.CandidateActivity {
	p.Tags = slices.Clone(p.Tags)
	p.OpeningHours = slices.Clone(p.OpeningHours)
	return p
}

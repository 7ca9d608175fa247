package trip

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps trips in process memory. Trips are cloned on the way
// in and out so callers never share state with the store.
type MemoryRepository struct {
	mu    sync.RWMutex
	trips map[uuid.UUID]*types.Trip
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{trips: make(map[uuid.UUID]*types.Trip)}
}

func (r *MemoryRepository) CreateTrip(_ context.Context, t *types.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if _, exists := r.trips[t.ID]; exists {
		return fmt.Errorf("%w: trip %s already exists", types.ErrPersistenceFailure, t.ID)
	}
	now := time.Now().UTC()
	t.Status = types.TripStatusDraft
	t.Progress = 0
	t.AttemptsCount = 0
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now
	r.trips[t.ID] = t.Clone()
	return nil
}

func (r *MemoryRepository) LoadTrip(_ context.Context, id uuid.UUID) (*types.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.trips[id]
	if !ok {
		return nil, fmt.Errorf("trip %s: %w", id, types.ErrNotFound)
	}
	return t.Clone(), nil
}

func (r *MemoryRepository) SaveTrip(_ context.Context, t *types.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.current(t)
	if err != nil {
		return err
	}
	next := t.Clone()
	next.UserID = stored.UserID
	next.Destination = stored.Destination
	next.CityID = stored.CityID
	next.DateRange = stored.DateRange
	next.CreatedAt = stored.CreatedAt
	r.commit(t, next)
	return nil
}

func (r *MemoryRepository) SaveStatus(_ context.Context, t *types.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.current(t)
	if err != nil {
		return err
	}
	next := stored.Clone()
	next.Status = t.Status
	next.Progress = t.Progress
	next.AttemptsCount = t.AttemptsCount
	next.Error = nil
	if t.Error != nil {
		e := *t.Error
		next.Error = &e
	}
	r.commit(t, next)
	return nil
}

func (r *MemoryRepository) DeleteActivities(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.trips[id]
	if !ok {
		return fmt.Errorf("trip %s: %w", id, types.ErrNotFound)
	}
	stored.Scheduled = nil
	stored.Unscheduled = nil
	return nil
}

func (r *MemoryRepository) current(t *types.Trip) (*types.Trip, error) {
	stored, ok := r.trips[t.ID]
	if !ok {
		return nil, fmt.Errorf("trip %s: %w", t.ID, types.ErrNotFound)
	}
	if stored.Version != t.Version {
		return nil, fmt.Errorf("trip %s at version %d, stored %d: %w", t.ID, t.Version, stored.Version, types.ErrVersionMismatch)
	}
	return stored, nil
}

// commit stores next under a bumped version and reflects the bump on the caller's copy.
func (r *MemoryRepository) commit(t, next *types.Trip) {
	now := time.Now().UTC()
	next.Version = t.Version + 1
	next.UpdatedAt = now
	r.trips[t.ID] = next
	t.Version = next.Version
	t.UpdatedAt = now
}

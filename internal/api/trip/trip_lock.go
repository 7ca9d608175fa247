package trip

import (
	"sync"

	"github.com/google/uuid"
)

// LockRegistry hands out one lease per trip. A generation or rebalance task
// holds the lease for its whole run; everything else that mutates the trip
// must acquire it first or report a conflict.
type LockRegistry struct {
	mu   sync.Mutex
	held map[uuid.UUID]string
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{held: make(map[uuid.UUID]string)}
}

// Lease is a held trip lock. Release is idempotent.
type Lease struct {
	TripID uuid.UUID
	Owner  string
	once   sync.Once
	reg    *LockRegistry
}

// TryAcquire takes the trip's lease for owner, or reports false when someone else holds it.
func (r *LockRegistry) TryAcquire(tripID uuid.UUID, owner string) (*Lease, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.held[tripID]; busy {
		return nil, false
	}
	r.held[tripID] = owner
	return &Lease{TripID: tripID, Owner: owner, reg: r}, true
}

// Holder returns the current owner of the trip's lease, if any.
func (r *LockRegistry) Holder(tripID uuid.UUID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.held[tripID]
	return owner, ok
}

func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		l.reg.mu.Lock()
		defer l.reg.mu.Unlock()
		if l.reg.held[l.TripID] == l.Owner {
			delete(l.reg.held, l.TripID)
		}
	})
}

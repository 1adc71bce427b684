// Package store holds the authoritative in-memory order snapshot for one
// viewing session. The store is owned by the session loop: every read and
// write happens on that single goroutine, so there are no locks here.
// Consistency across open dashboards comes from the external source of
// truth, never from shared memory.
package store

import (
	"restaurant-sync/internal/dashboard/reconcile"
	"restaurant-sync/internal/domain"
)

type Store struct {
	orders   reconcile.Snapshot
	updating map[string]bool
	onChange []func()
}

func New() *Store {
	return &Store{
		orders:   make(reconcile.Snapshot),
		updating: make(map[string]bool),
	}
}

// Subscribe registers a callback invoked after every snapshot replacement.
// This is the explicit change notification the projector hangs off; nothing
// here is tied to a render loop.
func (s *Store) Subscribe(fn func()) { s.onChange = append(s.onChange, fn) }

// Replace swaps in the snapshot produced by a reconciliation cycle and
// notifies subscribers.
func (s *Store) Replace(snap reconcile.Snapshot) {
	s.orders = snap
	for _, fn := range s.onChange {
		fn()
	}
}

// Snapshot returns the current snapshot. Callers must treat it as read-only;
// the reconciler clones before mutating.
func (s *Store) Snapshot() reconcile.Snapshot { return s.orders }

func (s *Store) Get(id string) (domain.Order, bool) {
	o, ok := s.orders[id]
	return o, ok
}

func (s *Store) Len() int { return len(s.orders) }

// SetUpdating marks an order as having a status-change request in flight so
// its action control stays disabled until the response lands.
func (s *Store) SetUpdating(id string, v bool) {
	if v {
		s.updating[id] = true
		return
	}
	delete(s.updating, id)
}

func (s *Store) Updating(id string) bool { return s.updating[id] }

// Package rules is the single source of the order state machine: which role
// may move an order from which status to which. Both the dashboards (to gate
// action controls) and the server (to reject with Forbidden) consult it.
package rules

import "restaurant-sync/internal/domain"

type step struct {
	next  domain.Status
	actor domain.Role
}

// The lifecycle is linear, each step owned by exactly one role. paid is
// terminal and has no entry here.
var steps = map[domain.Status]step{
	domain.StatusNew:       {domain.StatusInKitchen, domain.RoleKitchen},
	domain.StatusInKitchen: {domain.StatusReady, domain.RoleKitchen},
	domain.StatusReady:     {domain.StatusDelivered, domain.RoleWaiter},
	domain.StatusDelivered: {domain.StatusPaid, domain.RoleCashier},
}

// AllowedNext returns the statuses role may move an order in status to.
// Unknown statuses and roles lacking permission map to the empty set, so no
// action is ever offered on bad input.
func AllowedNext(status domain.Status, role domain.Role) []domain.Status {
	s, ok := steps[status]
	if !ok || s.actor != role {
		return nil
	}
	return []domain.Status{s.next}
}

// Allowed reports whether role may move an order from from to to.
func Allowed(from, to domain.Status, role domain.Role) bool {
	for _, n := range AllowedNext(from, role) {
		if n == to {
			return true
		}
	}
	return false
}

// Actor returns the role responsible for moving an order out of status,
// or false for terminal and unknown statuses.
func Actor(status domain.Status) (domain.Role, bool) {
	s, ok := steps[status]
	if !ok {
		return "", false
	}
	return s.actor, true
}

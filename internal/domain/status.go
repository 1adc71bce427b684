package domain

// Status is the lifecycle state of an order. The set is fixed and ordered;
// an order only ever moves forward along it.
type Status string

const (
	StatusNew       Status = "new"
	StatusInKitchen Status = "in_kitchen"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusPaid      Status = "paid"
)

var statusOrder = []Status{StatusNew, StatusInKitchen, StatusReady, StatusDelivered, StatusPaid}

// Statuses returns the lifecycle ordering, oldest stage first.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Index returns the position of s in the lifecycle ordering, or -1 for a
// status outside the fixed set. Unknown statuses are never forward of
// anything, so a corrupt value can never overwrite known state.
func (s Status) Index() int {
	for i, v := range statusOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// Known reports whether s belongs to the fixed lifecycle set.
func (s Status) Known() bool { return s.Index() >= 0 }

// Forward reports whether s is strictly later in the lifecycle than of.
func (s Status) Forward(of Status) bool {
	si, oi := s.Index(), of.Index()
	return si >= 0 && oi >= 0 && si > oi
}

// AtLeast reports whether s is the same as or later than of.
func (s Status) AtLeast(of Status) bool {
	si, oi := s.Index(), of.Index()
	return si >= 0 && oi >= 0 && si >= oi
}

// Terminal reports whether no further transition exists from s.
func (s Status) Terminal() bool { return s == StatusPaid }

// Active reports whether the order still needs attention on the floor.
func (s Status) Active() bool {
	switch s {
	case StatusNew, StatusInKitchen, StatusReady:
		return true
	}
	return false
}

// Role identifies which dashboard view is acting.
type Role string

const (
	RoleWaiter  Role = "waiter"
	RoleKitchen Role = "kitchen"
	RoleCashier Role = "cashier"
	RoleAdmin   Role = "admin"
)

// Known reports whether r is one of the four dashboard roles.
func (r Role) Known() bool {
	switch r {
	case RoleWaiter, RoleKitchen, RoleCashier, RoleAdmin:
		return true
	}
	return false
}

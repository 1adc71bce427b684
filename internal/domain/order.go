package domain

import "time"

// LineItem is one ordered position. Items are immutable once the order is
// created.
type LineItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Order is a single table's requested items tracked through the lifecycle.
type Order struct {
	ID          string     `json:"id"`
	Number      string     `json:"number"`
	TableNumber int        `json:"table_number"`
	StaffID     string     `json:"staff_id,omitempty"`
	Items       []LineItem `json:"items"`
	Note        string     `json:"note,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`

	// EnteredAt records when the order first entered each status. An entry
	// is written at most once, on first transition into that status.
	EnteredAt map[Status]time.Time `json:"entered_at,omitempty"`
}

// Total is the order amount across all line items.
func (o Order) Total() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += float64(it.Quantity) * it.UnitPrice
	}
	return sum
}

// Clone returns a deep copy so a snapshot can be mutated without aliasing
// the caller's order.
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = make([]LineItem, len(o.Items))
		copy(c.Items, o.Items)
	}
	if o.EnteredAt != nil {
		c.EnteredAt = make(map[Status]time.Time, len(o.EnteredAt))
		for k, v := range o.EnteredAt {
			c.EnteredAt[k] = v
		}
	}
	return c
}

// Advance moves the order to a strictly later status, stamping EnteredAt on
// first entry only. It is a no-op when to is not forward of the current
// status.
func (o *Order) Advance(to Status, at time.Time) bool {
	if !to.Forward(o.Status) {
		return false
	}
	o.Status = to
	if o.EnteredAt == nil {
		o.EnteredAt = make(map[Status]time.Time, len(statusOrder))
	}
	if _, exists := o.EnteredAt[to]; !exists {
		o.EnteredAt[to] = at
	}
	return true
}

// Product is a menu entry. The available flag is mutated only through the
// explicit availability toggle; unavailable products are not orderable.
type Product struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
}

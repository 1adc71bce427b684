package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind is the closed set of push-channel event kinds. Anything else on
// the wire is rejected at decode time.
type EventKind string

const (
	EventOrderCreated EventKind = "order-created"
	EventOrderUpdated EventKind = "order-updated"
	EventOrderReady   EventKind = "order-ready"

	// EventKitchenOrderCreated is the kitchen-targeted alias of
	// order-created published alongside it.
	EventKitchenOrderCreated EventKind = "kitchen-order-created"
)

// Known reports whether k is one of the four published kinds.
func (k EventKind) Known() bool {
	switch k {
	case EventOrderCreated, EventOrderUpdated, EventOrderReady, EventKitchenOrderCreated:
		return true
	}
	return false
}

// Creation reports whether k announces a brand-new order.
func (k EventKind) Creation() bool {
	return k == EventOrderCreated || k == EventKitchenOrderCreated
}

// PushEvent is one message from the persistent push channel. Kind, OrderID
// and Status are mandatory; Order carries the full record when the publisher
// has it at hand.
type PushEvent struct {
	Kind        EventKind `json:"kind"`
	OrderID     string    `json:"order_id"`
	Status      Status    `json:"status"`
	TableNumber int       `json:"table_number,omitempty"`
	Order       *Order    `json:"order,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// DecodePushEvent parses and validates a push-channel payload. Payloads with
// an unknown kind, a missing order id or an unknown status are rejected so a
// malformed message can be logged and dropped instead of corrupting state.
func DecodePushEvent(body []byte) (PushEvent, error) {
	var ev PushEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return PushEvent{}, fmt.Errorf("decode push event: %w", err)
	}
	if !ev.Kind.Known() {
		return PushEvent{}, fmt.Errorf("decode push event: unknown kind %q", ev.Kind)
	}
	if ev.OrderID == "" {
		return PushEvent{}, fmt.Errorf("decode push event: missing order_id")
	}
	if !ev.Status.Known() {
		return PushEvent{}, fmt.Errorf("decode push event: unknown status %q", ev.Status)
	}
	return ev, nil
}

// Classification says why a reconciliation cycle considered an order novel.
type Classification string

const (
	Created      Classification = "created"
	Transitioned Classification = "transitioned"
)

// NoveltyEvent is one detected creation or status change since the previous
// reconciliation cycle.
type NoveltyEvent struct {
	OrderID        string
	From           Status // empty for Created
	To             Status
	Classification Classification
}

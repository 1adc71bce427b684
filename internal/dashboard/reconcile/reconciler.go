// Package reconcile merges the two unreliable update channels, polling and
// push events, into one consistent snapshot. Push is applied before poll
// within a cycle, status only ever moves forward, and each creation or
// transition is reported as novelty exactly once.
package reconcile

import (
	"sort"
	"time"

	"restaurant-sync/internal/common/logger"
	"restaurant-sync/internal/domain"
)

// Snapshot maps order id to its locally known state.
type Snapshot map[string]domain.Order

// Clone deep-copies a snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, o := range s {
		out[id] = o.Clone()
	}
	return out
}

// Reconciler owns the seen-set for one viewing session. Ids are added the
// first time they are observed in any source and never removed while the
// session is alive.
type Reconciler struct {
	seen map[string]struct{}
	log  *logger.Logger
	now  func() time.Time
}

func New(log *logger.Logger) *Reconciler {
	return &Reconciler{
		seen: make(map[string]struct{}),
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the timestamp source; tests use it for deterministic
// EnteredAt stamps.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Seen reports whether the session has ever observed id.
func (r *Reconciler) Seen(id string) bool {
	_, ok := r.seen[id]
	return ok
}

// change tracks the net movement of one order within a single cycle. A push
// followed by a further-along poll result collapses into one novelty event.
type change struct {
	from    domain.Status
	to      domain.Status
	created bool
}

// Apply runs one reconciliation cycle: the pushed event first (if any), then
// the polled snapshot, returning the next snapshot and the novelty detected.
// Either input may be nil. Applying the same poll twice yields no novelty
// the second time.
func (r *Reconciler) Apply(prev Snapshot, polled []domain.Order, pushed *domain.PushEvent) (Snapshot, []domain.NoveltyEvent) {
	next := prev.Clone()
	changes := make(map[string]*change)
	observed := make(map[string]struct{})

	if pushed != nil {
		r.applyPush(next, changes, *pushed)
		observed[pushed.OrderID] = struct{}{}
	}
	for _, o := range polled {
		r.applyPolled(next, changes, o)
		observed[o.ID] = struct{}{}
	}

	events := r.collect(changes)
	for id := range observed {
		r.seen[id] = struct{}{}
	}
	return next, events
}

// applyPush upserts from a push event when its status is strictly forward of
// the local one; otherwise the event is stale and dropped (idempotent no-op).
func (r *Reconciler) applyPush(next Snapshot, changes map[string]*change, ev domain.PushEvent) {
	cur, exists := next[ev.OrderID]
	if !exists {
		o := r.orderFromEvent(ev)
		next[ev.OrderID] = o
		changes[ev.OrderID] = &change{to: o.Status, created: !r.Seen(ev.OrderID)}
		return
	}
	if !ev.Status.Forward(cur.Status) {
		if ev.Status != cur.Status {
			r.log.Debug("stale_push_discarded", map[string]any{
				"order_id": ev.OrderID, "local": cur.Status, "pushed": ev.Status,
			})
		}
		return
	}
	from := cur.Status
	if ev.Order != nil {
		cur = r.mergeFields(cur, *ev.Order)
	}
	cur.Advance(ev.Status, r.eventTime(ev))
	next[ev.OrderID] = cur
	r.record(changes, ev.OrderID, from, cur.Status)
}

// applyPolled applies one polled order: forward-or-equal wins, so a poll
// never rewinds state a push has already advanced.
func (r *Reconciler) applyPolled(next Snapshot, changes map[string]*change, o domain.Order) {
	cur, exists := next[o.ID]
	if !exists {
		next[o.ID] = o.Clone()
		changes[o.ID] = &change{to: o.Status, created: !r.Seen(o.ID)}
		return
	}
	if o.Status == cur.Status {
		// Same stage: refresh non-status fields, no novelty.
		next[o.ID] = r.mergeFields(cur, o)
		return
	}
	if !o.Status.Forward(cur.Status) {
		r.log.Debug("stale_poll_discarded", map[string]any{
			"order_id": o.ID, "local": cur.Status, "polled": o.Status,
		})
		return
	}
	from := cur.Status
	merged := r.mergeFields(cur, o)
	if ts, ok := o.EnteredAt[o.Status]; ok {
		merged.Advance(o.Status, ts)
	} else {
		merged.Advance(o.Status, r.now())
	}
	next[o.ID] = merged
	r.record(changes, o.ID, from, merged.Status)
}

func (r *Reconciler) record(changes map[string]*change, id string, from, to domain.Status) {
	if c, ok := changes[id]; ok {
		// Second movement in the same cycle: keep the origin, extend the end.
		c.to = to
		return
	}
	changes[id] = &change{from: from, to: to, created: !r.Seen(id)}
}

func (r *Reconciler) collect(changes map[string]*change) []domain.NoveltyEvent {
	if len(changes) == 0 {
		return nil
	}
	ids := make([]string, 0, len(changes))
	for id := range changes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	events := make([]domain.NoveltyEvent, 0, len(ids))
	for _, id := range ids {
		c := changes[id]
		ev := domain.NoveltyEvent{OrderID: id, To: c.to, Classification: domain.Transitioned, From: c.from}
		if c.created {
			ev.Classification = domain.Created
			ev.From = ""
		}
		events = append(events, ev)
	}
	return events
}

// mergeFields refreshes the mutable-by-source fields while preserving the
// locally accumulated status history.
func (r *Reconciler) mergeFields(local, incoming domain.Order) domain.Order {
	out := incoming.Clone()
	out.Status = local.Status
	out.EnteredAt = local.EnteredAt
	if out.EnteredAt == nil {
		out.EnteredAt = make(map[domain.Status]time.Time, 1)
	}
	if incoming.EnteredAt != nil {
		for st, ts := range incoming.EnteredAt {
			if _, exists := out.EnteredAt[st]; !exists && st.Index() <= local.Status.Index() {
				out.EnteredAt[st] = ts
			}
		}
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = local.CreatedAt
	}
	return out
}

func (r *Reconciler) orderFromEvent(ev domain.PushEvent) domain.Order {
	if ev.Order != nil {
		o := ev.Order.Clone()
		if o.EnteredAt == nil {
			o.EnteredAt = map[domain.Status]time.Time{o.Status: r.eventTime(ev)}
		}
		return o
	}
	// Skeleton order until the next poll fills in items and note.
	at := r.eventTime(ev)
	return domain.Order{
		ID:          ev.OrderID,
		TableNumber: ev.TableNumber,
		Status:      ev.Status,
		CreatedAt:   at,
		EnteredAt:   map[domain.Status]time.Time{ev.Status: at},
	}
}

func (r *Reconciler) eventTime(ev domain.PushEvent) time.Time {
	if !ev.OccurredAt.IsZero() {
		return ev.OccurredAt
	}
	return r.now()
}

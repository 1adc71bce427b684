// Package session runs one viewing session: a single loop that owns the
// order store and funnels poll results, push events and user actions through
// it one at a time. Reconciler and notifier therefore never run concurrently
// within a session and the store needs no locks.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"restaurant-sync/internal/apiclient"
	"restaurant-sync/internal/common/logger"
	"restaurant-sync/internal/dashboard/notify"
	"restaurant-sync/internal/dashboard/poll"
	"restaurant-sync/internal/dashboard/project"
	"restaurant-sync/internal/dashboard/reconcile"
	"restaurant-sync/internal/dashboard/store"
	"restaurant-sync/internal/domain"
	"restaurant-sync/internal/rules"
)

// API is the slice of the order API a session uses.
type API interface {
	ListOrders(ctx context.Context, f apiclient.OrderFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, to domain.Status) (domain.Order, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	SetAvailability(ctx context.Context, productID string, available bool) (domain.Product, error)
}

type Config struct {
	Role                domain.Role
	PollInterval        time.Duration
	ProductPollInterval time.Duration
}

type Session struct {
	cfg Config
	api API
	log *logger.Logger

	store    *store.Store
	rec      *reconcile.Reconciler
	notifier *notify.Notifier
	toast    notify.Toaster

	poller *poll.Scheduler
	push   <-chan domain.PushEvent

	products           map[string]domain.Product
	productsRefreshing bool

	actions chan func()
	novelty chan domain.NoveltyEvent
	done    chan struct{}
}

func New(cfg Config, api API, push <-chan domain.PushEvent, notifier *notify.Notifier, toast notify.Toaster, log *logger.Logger) *Session {
	s := &Session{
		cfg:      cfg,
		api:      api,
		log:      log,
		store:    store.New(),
		rec:      reconcile.New(log),
		notifier: notifier,
		toast:    toast,
		push:     push,
		products: make(map[string]domain.Product),
		actions:  make(chan func(), 16),
		novelty:  make(chan domain.NoveltyEvent, 64),
		done:     make(chan struct{}),
	}
	s.poller = poll.NewScheduler(cfg.PollInterval, s.fetchOrders, log)
	return s
}

// Novelty exposes the detected creations and transitions for transient UI
// affordances. Slow consumers lose events rather than stalling the session.
func (s *Session) Novelty() <-chan domain.NoveltyEvent { return s.novelty }

// Run drives the session until ctx is canceled (the view unmounting).
// Everything that touches the store executes here.
func (s *Session) Run(ctx context.Context) {
	s.poller.Start(ctx)
	defer s.poller.Stop()
	defer close(s.done)

	var productTick <-chan time.Time
	if s.managesProducts() {
		t := time.NewTicker(s.cfg.ProductPollInterval)
		defer t.Stop()
		productTick = t.C
		s.refreshProducts(ctx)
	}

	push := s.push
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-s.poller.Results():
			s.handlePoll(res)
		case ev, ok := <-push:
			if !ok {
				// Connection dropped: polling carries the view alone now.
				s.log.Warn("push_channel_lost", nil)
				push = nil
				continue
			}
			s.apply(nil, &ev)
		case <-productTick:
			s.refreshProducts(ctx)
		case fn := <-s.actions:
			fn()
		}
	}
}

func (s *Session) fetchOrders(ctx context.Context) ([]domain.Order, error) {
	return s.api.ListOrders(ctx, pollFilter(s.cfg.Role))
}

// pollFilter narrows the poll to what the role acts on; the admin view
// watches everything.
func pollFilter(role domain.Role) apiclient.OrderFilter {
	switch role {
	case domain.RoleCashier:
		return apiclient.OrderFilter{Statuses: []domain.Status{
			domain.StatusReady, domain.StatusDelivered, domain.StatusPaid,
		}}
	case domain.RoleAdmin:
		return apiclient.OrderFilter{}
	default:
		return apiclient.OrderFilter{Statuses: []domain.Status{
			domain.StatusNew, domain.StatusInKitchen, domain.StatusReady,
		}}
	}
}

func (s *Session) handlePoll(res poll.Result) {
	if res.Err != nil {
		// Non-fatal: the store stays as it was and the next tick retries.
		s.toast.Error("could not refresh orders")
		return
	}
	s.apply(res.Orders, nil)
}

func (s *Session) apply(polled []domain.Order, pushed *domain.PushEvent) {
	next, events := s.rec.Apply(s.store.Snapshot(), polled, pushed)
	s.store.Replace(next)
	s.notifier.Notify(events)
	for _, ev := range events {
		select {
		case s.novelty <- ev:
		default:
		}
	}
}

// dispatch schedules fn onto the session loop. Returns false once the
// session has ended; results arriving after unmount are discarded this way.
func (s *Session) dispatch(fn func()) bool {
	select {
	case s.actions <- fn:
		return true
	case <-s.done:
		return false
	}
}

// view runs fn on the loop and waits for it, for read access from the
// presentation layer.
func (s *Session) view(fn func()) {
	ran := make(chan struct{})
	if !s.dispatch(func() { fn(); close(ran) }) {
		return
	}
	select {
	case <-ran:
	case <-s.done:
	}
}

// Orders projects the current snapshot for rendering.
func (s *Session) Orders(filter project.Filter, key project.SortKey) []domain.Order {
	var out []domain.Order
	s.view(func() { out = project.Project(s.store.Snapshot(), filter, key) })
	return out
}

// Counts recomputes the per-status aggregates.
func (s *Session) Counts() project.Counts {
	var c project.Counts
	s.view(func() { c = project.Count(s.store.Snapshot()) })
	return c
}

// AllowedActions returns the next statuses the session's role may move the
// order to, empty while a change is already in flight.
func (s *Session) AllowedActions(orderID string) []domain.Status {
	var next []domain.Status
	s.view(func() {
		o, ok := s.store.Get(orderID)
		if !ok || s.store.Updating(orderID) {
			return
		}
		next = rules.AllowedNext(o.Status, s.cfg.Role)
	})
	return next
}

// ChangeStatus asks the server to move an order forward. The order is marked
// updating while the request is in flight so the control stays disabled; a
// Forbidden or failed request surfaces as a toast and leaves local state
// alone.
func (s *Session) ChangeStatus(ctx context.Context, orderID string, to domain.Status) {
	s.dispatch(func() {
		o, ok := s.store.Get(orderID)
		if !ok {
			s.toast.Error(fmt.Sprintf("unknown order %s", orderID))
			return
		}
		if s.store.Updating(orderID) {
			return
		}
		if !rules.Allowed(o.Status, to, s.cfg.Role) {
			s.toast.Error(fmt.Sprintf("%s may not move order %s to %s", s.cfg.Role, orderID, to))
			return
		}
		s.store.SetUpdating(orderID, true)

		go func() {
			updated, err := s.api.UpdateStatus(ctx, orderID, to)
			s.dispatch(func() {
				s.store.SetUpdating(orderID, false)
				if err != nil {
					s.log.Error("status_change_failed", err, map[string]any{"order_id": orderID, "to": to})
					switch {
					case errors.Is(err, domain.ErrForbidden):
						s.toast.Error(fmt.Sprintf("not allowed to move order %s to %s", orderID, to))
					case errors.Is(err, domain.ErrNotFound):
						s.toast.Error(fmt.Sprintf("order %s no longer exists", orderID))
					default:
						s.toast.Error(fmt.Sprintf("could not update order %s", orderID))
					}
					return
				}
				ev := eventForUpdate(updated)
				s.apply(nil, &ev)
			})
		}()
	})
}

func eventForUpdate(o domain.Order) domain.PushEvent {
	kind := domain.EventOrderUpdated
	if o.Status == domain.StatusReady {
		kind = domain.EventOrderReady
	}
	return domain.PushEvent{
		Kind:        kind,
		OrderID:     o.ID,
		Status:      o.Status,
		TableNumber: o.TableNumber,
		Order:       &o,
		OccurredAt:  time.Now().UTC(),
	}
}

func (s *Session) managesProducts() bool {
	return s.cfg.Role == domain.RoleAdmin || s.cfg.Role == domain.RoleWaiter
}

// refreshProducts pulls the menu on its own slower cadence. Loop-owned flag
// keeps at most one fetch in flight.
func (s *Session) refreshProducts(ctx context.Context) {
	if s.productsRefreshing {
		return
	}
	s.productsRefreshing = true
	go func() {
		products, err := s.api.ListProducts(ctx)
		s.dispatch(func() {
			s.productsRefreshing = false
			if err != nil {
				s.toast.Error("could not refresh products")
				return
			}
			for _, p := range products {
				s.products[p.ID] = p
			}
		})
	}()
}

// Products lists the menu sorted by name for rendering.
func (s *Session) Products() []domain.Product {
	var out []domain.Product
	s.view(func() {
		for _, p := range s.products {
			out = append(out, p)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ToggleAvailability flips a product's available flag optimistically: the
// local flag changes at once and reverts with an error toast if the call
// fails.
func (s *Session) ToggleAvailability(ctx context.Context, productID string) {
	s.dispatch(func() {
		p, ok := s.products[productID]
		if !ok {
			s.toast.Error(fmt.Sprintf("unknown product %s", productID))
			return
		}
		p.Available = !p.Available
		s.products[productID] = p
		want := p.Available

		go func() {
			_, err := s.api.SetAvailability(ctx, productID, want)
			if err == nil {
				return
			}
			s.dispatch(func() {
				cur := s.products[productID]
				cur.Available = !want
				s.products[productID] = cur
				s.toast.Error(fmt.Sprintf("could not update availability of %s", productID))
			})
		}()
	})
}

package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-sync/internal/apiclient"
	"restaurant-sync/internal/common/logger"
	"restaurant-sync/internal/dashboard/notify"
	"restaurant-sync/internal/dashboard/project"
	"restaurant-sync/internal/domain"
)

// fakeAPI serves canned orders and records mutations. Safe for concurrent
// use since the session calls it from worker goroutines.
type fakeAPI struct {
	mu       sync.Mutex
	orders   map[string]domain.Order
	products map[string]domain.Product

	updateErr error
	availErr  error
	updates   []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		orders:   make(map[string]domain.Order),
		products: make(map[string]domain.Product),
	}
}

func (f *fakeAPI) put(o domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = o
}

func (f *fakeAPI) ListOrders(ctx context.Context, _ apiclient.OrderFilter) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeAPI) UpdateStatus(ctx context.Context, orderID string, to domain.Status) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, orderID+":"+string(to))
	if f.updateErr != nil {
		return domain.Order{}, f.updateErr
	}
	o := f.orders[orderID]
	o.Status = to
	f.orders[orderID] = o
	return o, nil
}

func (f *fakeAPI) ListProducts(ctx context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeAPI) SetAvailability(ctx context.Context, productID string, available bool) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.availErr != nil {
		return domain.Product{}, f.availErr
	}
	p := f.products[productID]
	p.Available = available
	f.products[productID] = p
	return p, nil
}

func (f *fakeAPI) updateCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updates...)
}

type recordingToast struct {
	mu     sync.Mutex
	shown  []string
	errors []string
}

func (r *recordingToast) Show(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, msg)
}

func (r *recordingToast) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recordingToast) allShown() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.shown...)
}

func (r *recordingToast) allErrors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

type silentAudio struct{}

func (silentAudio) Play(notify.Cue, float64) {}

func startSession(t *testing.T, role domain.Role, api API, push <-chan domain.PushEvent) (*Session, *recordingToast, context.CancelFunc) {
	t.Helper()
	lg := logger.NewWithWriter("test", io.Discard, slog.LevelError)
	toast := &recordingToast{}
	notifier := notify.New(role, notify.Config{Sounds: true, Volume: 1}, silentAudio{}, toast, lg)
	s := New(Config{
		Role:                role,
		PollInterval:        20 * time.Millisecond,
		ProductPollInterval: 20 * time.Millisecond,
	}, api, push, notifier, toast, lg)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(cancel)
	return s, toast, cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestPollPopulatesStoreAndNotifies(t *testing.T) {
	api := newFakeAPI()
	api.put(domain.Order{ID: "o1", Status: domain.StatusNew, CreatedAt: time.Now()})

	s, toast, _ := startSession(t, domain.RoleKitchen, api, nil)

	waitFor(t, func() bool { return len(s.Orders(project.FilterActive, project.OldestFirst)) == 1 })
	waitFor(t, func() bool { return len(toast.allShown()) >= 1 })
	assert.Equal(t, "1 new order", toast.allShown()[0])

	// Further identical polls stay silent.
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, toast.allShown(), 1)
}

func TestPushEventFlowsThroughSession(t *testing.T) {
	api := newFakeAPI()
	api.put(domain.Order{ID: "o1", Status: domain.StatusInKitchen, CreatedAt: time.Now()})
	push := make(chan domain.PushEvent, 1)

	s, toast, _ := startSession(t, domain.RoleWaiter, api, push)
	waitFor(t, func() bool { return len(s.Orders(project.FilterActive, project.OldestFirst)) == 1 })

	push <- domain.PushEvent{Kind: domain.EventOrderReady, OrderID: "o1", Status: domain.StatusReady}

	waitFor(t, func() bool {
		orders := s.Orders(project.FilterActive, project.OldestFirst)
		return len(orders) == 1 && orders[0].Status == domain.StatusReady
	})
	waitFor(t, func() bool { return len(toast.allShown()) >= 1 })
	assert.Equal(t, "order o1 is ready", toast.allShown()[0])
}

func TestNoveltyStreamDelivers(t *testing.T) {
	api := newFakeAPI()
	api.put(domain.Order{ID: "o1", Status: domain.StatusNew, CreatedAt: time.Now()})

	s, _, _ := startSession(t, domain.RoleAdmin, api, nil)

	select {
	case ev := <-s.Novelty():
		assert.Equal(t, "o1", ev.OrderID)
		assert.Equal(t, domain.Created, ev.Classification)
	case <-time.After(2 * time.Second):
		t.Fatal("no novelty event")
	}
}

func TestChangeStatusHappyPath(t *testing.T) {
	api := newFakeAPI()
	api.put(domain.Order{ID: "o1", Status: domain.StatusReady, CreatedAt: time.Now()})

	s, _, _ := startSession(t, domain.RoleWaiter, api, nil)
	waitFor(t, func() bool { return len(s.Orders(project.FilterAll, project.OldestFirst)) == 1 })

	s.ChangeStatus(context.Background(), "o1", domain.StatusDelivered)

	waitFor(t, func() bool {
		orders := s.Orders(project.FilterAll, project.OldestFirst)
		return len(orders) == 1 && orders[0].Status == domain.StatusDelivered
	})
	assert.Equal(t, []string{"o1:delivered"}, api.updateCalls())
}

func TestChangeStatusGatedLocally(t *testing.T) {
	api := newFakeAPI()
	api.put(domain.Order{ID: "o1", Status: domain.StatusReady, CreatedAt: time.Now()})

	s, toast, _ := startSession(t, domain.RoleKitchen, api, nil)
	waitFor(t, func() bool { return len(s.Orders(project.FilterAll, project.OldestFirst)) == 1 })

	// Kitchen may not deliver; the request never reaches the API.
	s.ChangeStatus(context.Background(), "o1", domain.StatusDelivered)

	waitFor(t, func() bool { return len(toast.allErrors()) >= 1 })
	assert.Empty(t, api.updateCalls())
	orders := s.Orders(project.FilterAll, project.OldestFirst)
	assert.Equal(t, domain.StatusReady, orders[0].Status, "local state untouched")
}

func TestChangeStatusServerForbidden(t *testing.T) {
	api := newFakeAPI()
	api.put(domain.Order{ID: "o1", Status: domain.StatusReady, CreatedAt: time.Now()})
	api.updateErr = domain.ErrForbidden

	s, toast, _ := startSession(t, domain.RoleWaiter, api, nil)
	waitFor(t, func() bool { return len(s.Orders(project.FilterAll, project.OldestFirst)) == 1 })

	s.ChangeStatus(context.Background(), "o1", domain.StatusDelivered)

	waitFor(t, func() bool { return len(toast.allErrors()) >= 1 })
	orders := s.Orders(project.FilterAll, project.OldestFirst)
	assert.Equal(t, domain.StatusReady, orders[0].Status)
	// The updating flag is released, so the action is offered again.
	waitFor(t, func() bool { return len(s.AllowedActions("o1")) == 1 })
}

func TestAllowedActionsFollowRoleAndUpdatingFlag(t *testing.T) {
	api := newFakeAPI()
	api.put(domain.Order{ID: "o1", Status: domain.StatusNew, CreatedAt: time.Now()})

	s, _, _ := startSession(t, domain.RoleKitchen, api, nil)
	waitFor(t, func() bool { return len(s.Orders(project.FilterAll, project.OldestFirst)) == 1 })

	assert.Equal(t, []domain.Status{domain.StatusInKitchen}, s.AllowedActions("o1"))
	assert.Empty(t, s.AllowedActions("missing"))
}

func TestToggleAvailabilityOptimistic(t *testing.T) {
	api := newFakeAPI()
	api.products["p1"] = domain.Product{ID: "p1", Name: "margherita", Available: true}

	s, _, _ := startSession(t, domain.RoleAdmin, api, nil)
	waitFor(t, func() bool { return len(s.Products()) == 1 })

	s.ToggleAvailability(context.Background(), "p1")

	waitFor(t, func() bool {
		ps := s.Products()
		return len(ps) == 1 && !ps[0].Available
	})
}

func TestToggleAvailabilityRevertsOnFailure(t *testing.T) {
	api := newFakeAPI()
	api.products["p1"] = domain.Product{ID: "p1", Name: "margherita", Available: true}
	api.availErr = &domain.NetworkError{Op: "patch", Err: context.DeadlineExceeded}

	s, toast, _ := startSession(t, domain.RoleAdmin, api, nil)
	waitFor(t, func() bool { return len(s.Products()) == 1 })

	s.ToggleAvailability(context.Background(), "p1")

	// The flag reverts once the failure lands, with an error toast.
	waitFor(t, func() bool { return len(toast.allErrors()) >= 1 })
	waitFor(t, func() bool {
		ps := s.Products()
		return len(ps) == 1 && ps[0].Available
	})
}

func TestViewsReturnEmptyAfterUnmount(t *testing.T) {
	api := newFakeAPI()
	api.put(domain.Order{ID: "o1", Status: domain.StatusNew, CreatedAt: time.Now()})

	s, _, cancel := startSession(t, domain.RoleKitchen, api, nil)
	waitFor(t, func() bool { return len(s.Orders(project.FilterAll, project.OldestFirst)) == 1 })

	cancel()
	waitFor(t, func() bool {
		select {
		case <-s.done:
			return true
		default:
			return false
		}
	})

	assert.Empty(t, s.Orders(project.FilterAll, project.OldestFirst))
	require.NotPanics(t, func() { s.ChangeStatus(context.Background(), "o1", domain.StatusInKitchen) })
}

func TestPushChannelCloseFallsBackToPolling(t *testing.T) {
	api := newFakeAPI()
	push := make(chan domain.PushEvent)

	s, _, _ := startSession(t, domain.RoleKitchen, api, push)
	close(push)

	// Polling still works after the push channel is gone.
	api.put(domain.Order{ID: "o1", Status: domain.StatusNew, CreatedAt: time.Now()})
	waitFor(t, func() bool { return len(s.Orders(project.FilterAll, project.OldestFirst)) == 1 })
}

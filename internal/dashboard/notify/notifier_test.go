package notify

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-sync/internal/common/logger"
	"restaurant-sync/internal/domain"
)

type fakeAudio struct {
	cues    []Cue
	volumes []float64
}

func (f *fakeAudio) Play(cue Cue, volume float64) {
	f.cues = append(f.cues, cue)
	f.volumes = append(f.volumes, volume)
}

type fakeToast struct {
	shown  []string
	errors []string
}

func (f *fakeToast) Show(msg string)  { f.shown = append(f.shown, msg) }
func (f *fakeToast) Error(msg string) { f.errors = append(f.errors, msg) }

func newNotifier(role domain.Role) (*Notifier, *fakeAudio, *fakeToast) {
	audio := &fakeAudio{}
	toast := &fakeToast{}
	lg := logger.NewWithWriter("test", io.Discard, slog.LevelError)
	n := New(role, Config{Sounds: true, Volume: 0.8}, audio, toast, lg)
	return n, audio, toast
}

func created(id string) domain.NoveltyEvent {
	return domain.NoveltyEvent{OrderID: id, To: domain.StatusNew, Classification: domain.Created}
}

func transitioned(id string, from, to domain.Status) domain.NoveltyEvent {
	return domain.NoveltyEvent{OrderID: id, From: from, To: to, Classification: domain.Transitioned}
}

func TestKitchenBatchesCreatedOrders(t *testing.T) {
	n, audio, toast := newNotifier(domain.RoleKitchen)

	n.Notify([]domain.NoveltyEvent{created("o1"), created("o2"), created("o3")})

	require.Len(t, toast.shown, 1, "one toast for the whole batch")
	assert.Equal(t, "3 new orders", toast.shown[0])
	require.Len(t, audio.cues, 1, "one cue per cycle, not per order")
	assert.Equal(t, CueNewOrder, audio.cues[0])
	assert.InDelta(t, 0.8, audio.volumes[0], 1e-9)
}

func TestKitchenSingleCreatedOrder(t *testing.T) {
	n, audio, toast := newNotifier(domain.RoleKitchen)

	n.Notify([]domain.NoveltyEvent{created("o1")})

	require.Len(t, toast.shown, 1)
	assert.Equal(t, "1 new order", toast.shown[0])
	assert.Len(t, audio.cues, 1)
}

func TestWaiterReadyMilestone(t *testing.T) {
	n, audio, toast := newNotifier(domain.RoleWaiter)

	n.Notify([]domain.NoveltyEvent{
		transitioned("o1", domain.StatusInKitchen, domain.StatusReady),
		transitioned("o2", domain.StatusInKitchen, domain.StatusReady),
	})

	require.Len(t, toast.shown, 2, "milestones toast per order")
	assert.Equal(t, "order o1 is ready", toast.shown[0])
	assert.Equal(t, "order o2 is ready", toast.shown[1])
	require.Len(t, audio.cues, 2)
	assert.Equal(t, CueMilestone, audio.cues[0])
}

func TestWaiterIgnoresKitchenTransition(t *testing.T) {
	n, audio, toast := newNotifier(domain.RoleWaiter)

	n.Notify([]domain.NoveltyEvent{
		created("o1"),
		transitioned("o2", domain.StatusNew, domain.StatusInKitchen),
	})

	assert.Empty(t, toast.shown)
	assert.Empty(t, audio.cues)
}

func TestKitchenIgnoresPayment(t *testing.T) {
	n, audio, toast := newNotifier(domain.RoleKitchen)

	n.Notify([]domain.NoveltyEvent{
		transitioned("o1", domain.StatusDelivered, domain.StatusPaid),
		transitioned("o2", domain.StatusReady, domain.StatusDelivered),
	})

	assert.Empty(t, toast.shown)
	assert.Empty(t, audio.cues)
}

func TestCashierDeliveredMilestone(t *testing.T) {
	n, _, toast := newNotifier(domain.RoleCashier)

	n.Notify([]domain.NoveltyEvent{
		transitioned("o1", domain.StatusReady, domain.StatusDelivered),
	})

	require.Len(t, toast.shown, 1)
	assert.Equal(t, "order o1 is delivered", toast.shown[0])
}

func TestAdminSeesNewOrders(t *testing.T) {
	n, audio, toast := newNotifier(domain.RoleAdmin)

	n.Notify([]domain.NoveltyEvent{created("o1"), created("o2")})

	require.Len(t, toast.shown, 1)
	assert.Equal(t, "2 new orders", toast.shown[0])
	assert.Len(t, audio.cues, 1)
}

func TestSoundsDisabledKeepsToasts(t *testing.T) {
	audio := &fakeAudio{}
	toast := &fakeToast{}
	lg := logger.NewWithWriter("test", io.Discard, slog.LevelError)
	n := New(domain.RoleKitchen, Config{Sounds: false}, audio, toast, lg)

	n.Notify([]domain.NoveltyEvent{created("o1")})

	assert.Len(t, toast.shown, 1)
	assert.Empty(t, audio.cues)
}

func TestMixedCycle(t *testing.T) {
	// Created orders that are not at the role's entry status do not count
	// toward the batch: a waiter view discovering mid-lifecycle orders on
	// first poll stays quiet about them.
	n, audio, toast := newNotifier(domain.RoleWaiter)

	n.Notify([]domain.NoveltyEvent{
		{OrderID: "o1", To: domain.StatusInKitchen, Classification: domain.Created},
		transitioned("o2", domain.StatusInKitchen, domain.StatusReady),
	})

	require.Len(t, toast.shown, 1)
	assert.Equal(t, "order o2 is ready", toast.shown[0])
	assert.Len(t, audio.cues, 1)
}

func TestNoEventsNoNoise(t *testing.T) {
	n, audio, toast := newNotifier(domain.RoleKitchen)
	n.Notify(nil)
	assert.Empty(t, toast.shown)
	assert.Empty(t, audio.cues)
}

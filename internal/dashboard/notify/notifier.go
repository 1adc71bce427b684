// Package notify turns novelty events into role-appropriate alerts. The
// notifier is an injected per-session instance with its own sound
// configuration; nothing is global.
package notify

import (
	"fmt"

	"restaurant-sync/internal/common/logger"
	"restaurant-sync/internal/domain"
)

// Cue names an audio sample.
type Cue string

const (
	CueNewOrder  Cue = "new_order"
	CueMilestone Cue = "milestone"
)

// AudioPlayer plays a cue at a volume within [0,1].
type AudioPlayer interface {
	Play(cue Cue, volume float64)
}

// Toaster shows transient, dismissible messages.
type Toaster interface {
	Show(msg string)
	Error(msg string)
}

// Config is passed at construction; sessions never share sound state.
type Config struct {
	Sounds bool
	Volume float64
}

// entryStatus is the status whose Created events are actionable news for a
// role; milestoneStatus the transition target worth a per-order alert.
// Kitchen and admin care about fresh orders; the waiter waits for ready,
// the cashier for delivered. Everything else stays silent for that role.
var (
	entryStatus = map[domain.Role]domain.Status{
		domain.RoleKitchen: domain.StatusNew,
		domain.RoleAdmin:   domain.StatusNew,
	}
	milestoneStatus = map[domain.Role]domain.Status{
		domain.RoleWaiter:  domain.StatusReady,
		domain.RoleCashier: domain.StatusDelivered,
	}
)

type Notifier struct {
	role  domain.Role
	cfg   Config
	audio AudioPlayer
	toast Toaster
	log   *logger.Logger
}

func New(role domain.Role, cfg Config, audio AudioPlayer, toast Toaster, log *logger.Logger) *Notifier {
	return &Notifier{role: role, cfg: cfg, audio: audio, toast: toast, log: log}
}

// Notify fires alerts for one reconciliation cycle's novelty. Created events
// at the role's entry status are batched: one toast reporting the count and
// one audio cue for the whole cycle. Milestone transitions get a milder cue
// and a toast per order.
func (n *Notifier) Notify(events []domain.NoveltyEvent) {
	if len(events) == 0 {
		return
	}

	entry, hasEntry := entryStatus[n.role]
	milestone, hasMilestone := milestoneStatus[n.role]

	created := 0
	for _, ev := range events {
		switch {
		case ev.Classification == domain.Created && hasEntry && ev.To == entry:
			created++
		case ev.Classification == domain.Transitioned && hasMilestone && ev.To == milestone:
			n.toast.Show(fmt.Sprintf("order %s is %s", ev.OrderID, ev.To))
			n.play(CueMilestone)
		}
	}

	if created > 0 {
		n.toast.Show(newOrdersMessage(created))
		// One cue per cycle however many orders arrived, to avoid audio
		// flooding.
		n.play(CueNewOrder)
	}
}

func newOrdersMessage(n int) string {
	if n == 1 {
		return "1 new order"
	}
	return fmt.Sprintf("%d new orders", n)
}

func (n *Notifier) play(cue Cue) {
	if !n.cfg.Sounds {
		return
	}
	n.audio.Play(cue, n.cfg.Volume)
	n.log.Debug("audio_cue", map[string]any{"cue": string(cue), "role": string(n.role)})
}

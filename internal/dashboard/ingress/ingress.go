// Package ingress consumes the push channel for one viewing session. The
// subscription lives from mount to unmount; if the broker connection drops,
// the poll scheduler remains the sole source of truth until it comes back.
package ingress

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-sync/internal/common/logger"
	"restaurant-sync/internal/common/mq"
	"restaurant-sync/internal/domain"
)

type Ingress struct {
	client *mq.Client
	log    *logger.Logger

	events chan domain.PushEvent
	cancel func()
	done   chan struct{}
}

func New(client *mq.Client, log *logger.Logger) *Ingress {
	return &Ingress{
		client: client,
		log:    log,
		events: make(chan domain.PushEvent, 64),
		done:   make(chan struct{}),
	}
}

// Events delivers decoded push events. The channel closes when the consumer
// ends, either on Stop or when the broker connection is lost.
func (i *Ingress) Events() <-chan domain.PushEvent { return i.events }

// Start binds the session's queue to the events fanout and begins decoding.
// Call once per mount.
func (i *Ingress) Start(session string) error {
	deliveries, cancel, err := i.client.SubscribeEvents(session)
	if err != nil {
		return err
	}
	i.cancel = cancel
	go i.consume(deliveries)
	return nil
}

func (i *Ingress) consume(deliveries <-chan amqp.Delivery) {
	defer close(i.done)
	defer close(i.events)
	for d := range deliveries {
		ev, err := domain.DecodePushEvent(d.Body)
		if err != nil {
			// Malformed payloads are logged and dropped, never fatal.
			i.log.Warn("push_event_rejected", map[string]any{
				"error": err.Error(), "message_id": d.MessageId,
			})
			continue
		}
		select {
		case i.events <- ev:
		default:
			// A wedged consumer must not deadlock teardown; the next poll
			// re-delivers whatever is dropped here.
			i.log.Warn("push_event_dropped", map[string]any{"order_id": ev.OrderID})
		}
	}
	i.log.Info("push_channel_closed", nil)
}

// Stop cancels the consumer and waits for the decode loop to drain. Called
// on unmount so no listener outlives its view.
func (i *Ingress) Stop() {
	if i.cancel != nil {
		i.cancel()
	}
	<-i.done
}

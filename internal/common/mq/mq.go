package mq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-sync/internal/common/config"
)

// EventsExchange is the fanout every order lifecycle event is published to.
// Each dashboard session binds its own queue to it.
const EventsExchange = "order_events"

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(cfg config.MQ) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/%s", cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.VHost)
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Ping is a light liveness check on the underlying connection.
func (c *Client) Ping() error {
	if c == nil || c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// DeclareEvents declares the events fanout. Idempotent; both publisher and
// subscribers call it so startup order does not matter.
func (c *Client) DeclareEvents() error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("nil channel")
	}
	return c.ch.ExchangeDeclare(EventsExchange, "fanout", true, false, false, false, nil)
}

// PublishEvent publishes one JSON payload to the events fanout, persistent,
// correlated by order id for tracing.
func (c *Client) PublishEvent(ctx context.Context, body []byte, msgID, orderID string) error {
	return c.ch.PublishWithContext(ctx, EventsExchange, "", false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     msgID,
		CorrelationId: orderID,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	})
}

// SubscribeEvents binds a fresh exclusive queue for one dashboard session to
// the events fanout and starts consuming. The returned cancel tears the
// consumer down; the auto-delete queue disappears with the connection, so no
// orphaned listeners survive an unmount.
func (c *Client) SubscribeEvents(session string) (<-chan amqp.Delivery, func(), error) {
	if err := c.DeclareEvents(); err != nil {
		return nil, nil, err
	}
	queue := "dashboard." + session
	q, err := c.ch.QueueDeclare(queue, false, true, true, false, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("declare %s: %w", queue, err)
	}
	if err := c.ch.QueueBind(q.Name, "", EventsExchange, false, nil); err != nil {
		return nil, nil, fmt.Errorf("bind %s: %w", queue, err)
	}
	deliveries, err := c.ch.Consume(q.Name, session, true, true, false, false, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	cancel := func() { _ = c.ch.Cancel(session, false) }
	return deliveries, cancel, nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"restaurant-sync/internal/common/mq"
	"restaurant-sync/internal/domain"
)

// EventPublisher puts lifecycle events on the RabbitMQ fanout the dashboard
// sessions subscribe to.
type EventPublisher struct {
	client *mq.Client
}

func NewEventPublisher(client *mq.Client) (*EventPublisher, error) {
	if err := client.DeclareEvents(); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return &EventPublisher{client: client}, nil
}

func (p *EventPublisher) PublishEvent(ctx context.Context, ev domain.PushEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.client.PublishEvent(ctx, body, uuid.NewString(), ev.OrderID)
}

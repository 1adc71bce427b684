package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"restaurant-sync/internal/common/logger"
	"restaurant-sync/internal/domain"
	"restaurant-sync/internal/rules"
	"restaurant-sync/internal/server/repository"
)

// ErrInvalid marks a request rejected by validation; handlers answer 400.
var ErrInvalid = errors.New("invalid request")

// Publisher pushes lifecycle events to the dashboards' push channel.
type Publisher interface {
	PublishEvent(ctx context.Context, ev domain.PushEvent) error
}

// CreateOrderRequest is the order-entry payload.
type CreateOrderRequest struct {
	TableNumber int               `json:"table_number"`
	StaffID     string            `json:"staff_id"`
	Items       []domain.LineItem `json:"items"`
	Note        string            `json:"note"`
}

type OrderService struct {
	orders   repository.OrderRepositoryInterface
	products repository.ProductRepositoryInterface
	pub      Publisher
	log      *logger.Logger
	now      func() time.Time
}

func NewOrderService(orders repository.OrderRepositoryInterface, products repository.ProductRepositoryInterface, pub Publisher, log *logger.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		pub:      pub,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock fixes the timestamp source for tests.
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

// Create validates and stores a fresh order in status new, then announces it
// on the push channel (both the generic kind and the kitchen alias).
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	if req.TableNumber <= 0 {
		return domain.Order{}, fmt.Errorf("table number is required: %w", ErrInvalid)
	}
	if len(req.Items) == 0 {
		return domain.Order{}, fmt.Errorf("at least one item is required: %w", ErrInvalid)
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("invalid quantity for %s: %w", it.Name, ErrInvalid)
		}
		if it.UnitPrice <= 0 {
			return domain.Order{}, fmt.Errorf("invalid price for %s: %w", it.Name, ErrInvalid)
		}
		if it.ProductID != "" {
			p, err := s.products.Get(ctx, it.ProductID)
			if err != nil {
				return domain.Order{}, fmt.Errorf("unknown product %s: %w", it.ProductID, ErrInvalid)
			}
			if !p.Available {
				return domain.Order{}, fmt.Errorf("%s is not available: %w", p.Name, ErrInvalid)
			}
		}
	}

	now := s.now()
	number, err := s.nextNumber(ctx, now)
	if err != nil {
		return domain.Order{}, err
	}
	order := domain.Order{
		ID:          uuid.NewString(),
		Number:      number,
		TableNumber: req.TableNumber,
		StaffID:     req.StaffID,
		Items:       req.Items,
		Note:        req.Note,
		Status:      domain.StatusNew,
		CreatedAt:   now,
		EnteredAt:   map[domain.Status]time.Time{domain.StatusNew: now},
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("save order: %w", err)
	}
	s.log.Info("order_created", map[string]any{
		"order_id": order.ID, "number": order.Number, "table": order.TableNumber,
	})

	s.publish(ctx, domain.EventOrderCreated, order)
	s.publish(ctx, domain.EventKitchenOrderCreated, order)
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.orders.Get(ctx, id)
}

func (s *OrderService) List(ctx context.Context, f repository.Filter) ([]domain.Order, error) {
	return s.orders.List(ctx, f)
}

// ChangeStatus applies one forward step on behalf of role. The transition
// rules gate it here exactly as they gate the dashboards' controls.
func (s *OrderService) ChangeStatus(ctx context.Context, id string, to domain.Status, role domain.Role) (domain.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !rules.Allowed(order.Status, to, role) {
		return domain.Order{}, fmt.Errorf("%s may not move order from %s to %s: %w",
			role, order.Status, to, domain.ErrForbidden)
	}

	updated, err := s.orders.AdvanceStatus(ctx, id, to, string(role))
	if err != nil {
		return domain.Order{}, err
	}
	s.log.Info("order_status_changed", map[string]any{
		"order_id": id, "from": order.Status, "to": to, "by": string(role),
	})

	kind := domain.EventOrderUpdated
	if to == domain.StatusReady {
		kind = domain.EventOrderReady
	}
	s.publish(ctx, kind, updated)
	return updated, nil
}

// nextNumber keeps the human-friendly ORD_YYYYMMDD_NNN display number.
func (s *OrderService) nextNumber(ctx context.Context, now time.Time) (string, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	n, err := s.orders.CountCreatedSince(ctx, midnight)
	if err != nil {
		return "", fmt.Errorf("order sequence: %w", err)
	}
	return fmt.Sprintf("ORD_%s_%03d", now.Format("20060102"), n+1), nil
}

// publish failures are logged, not returned: the dashboards' poll cycle
// repairs anything a lost event would have carried.
func (s *OrderService) publish(ctx context.Context, kind domain.EventKind, o domain.Order) {
	ev := domain.PushEvent{
		Kind:        kind,
		OrderID:     o.ID,
		Status:      o.Status,
		TableNumber: o.TableNumber,
		Order:       &o,
		OccurredAt:  s.now(),
	}
	if err := s.pub.PublishEvent(ctx, ev); err != nil {
		s.log.Error("event_publish_failed", err, map[string]any{
			"order_id": o.ID, "kind": string(kind),
		})
	}
}

// Package apiclient is the HTTP client for the order API consumed by the
// dashboards: role-scoped listing for the poll scheduler and the
// user-triggered mutations.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"restaurant-sync/internal/domain"
)

type Client struct {
	base string
	role domain.Role
	http *http.Client
}

func New(base string, role domain.Role) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		role: role,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// OrderFilter narrows ListOrders to what the view needs.
type OrderFilter struct {
	Statuses []domain.Status
	StaffID  string
	From     time.Time
	To       time.Time
}

func (f OrderFilter) query() url.Values {
	q := url.Values{}
	for _, s := range f.Statuses {
		q.Add("status", string(s))
	}
	if f.StaffID != "" {
		q.Set("staff_id", f.StaffID)
	}
	if !f.From.IsZero() {
		q.Set("from", f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.UTC().Format(time.RFC3339))
	}
	return q
}

func (c *Client) ListOrders(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	u := c.base + "/orders"
	if q := f.query().Encode(); q != "" {
		u += "?" + q
	}
	var orders []domain.Order
	if err := c.do(ctx, http.MethodGet, u, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrderRequest is what a waiter submits from the order-entry form.
type CreateOrderRequest struct {
	TableNumber int               `json:"table_number"`
	StaffID     string            `json:"staff_id,omitempty"`
	Items       []domain.LineItem `json:"items"`
	Note        string            `json:"note,omitempty"`
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	var o domain.Order
	err := c.do(ctx, http.MethodPost, c.base+"/orders", req, &o)
	return o, err
}

// UpdateStatus asks the server to move an order forward. The server applies
// the same transition rules and answers Forbidden when the role may not.
func (c *Client) UpdateStatus(ctx context.Context, orderID string, to domain.Status) (domain.Order, error) {
	body := map[string]domain.Status{"status": to}
	var o domain.Order
	err := c.do(ctx, http.MethodPatch, c.base+"/orders/"+url.PathEscape(orderID)+"/status", body, &o)
	return o, err
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.do(ctx, http.MethodGet, c.base+"/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) SetAvailability(ctx context.Context, productID string, available bool) (domain.Product, error) {
	body := map[string]bool{"available": available}
	var p domain.Product
	err := c.do(ctx, http.MethodPatch, c.base+"/products/"+url.PathEscape(productID)+"/availability", body, &p)
	return p, err
}

func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Role", string(c.role))

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.NetworkError{Op: method + " " + u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.NetworkError{Op: method + " " + u, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
	msg := payload.Error
	if msg == "" {
		msg = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, domain.ErrForbidden)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", msg, domain.ErrStale)
	default:
		return fmt.Errorf("api error %d: %s", resp.StatusCode, msg)
	}
}

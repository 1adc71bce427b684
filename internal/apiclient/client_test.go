package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-sync/internal/domain"
)

func TestListOrdersSendsRoleAndFilters(t *testing.T) {
	var gotRole string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole = r.Header.Get("X-Role")
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode([]domain.Order{{ID: "o1", Status: domain.StatusNew}})
	}))
	defer srv.Close()

	c := New(srv.URL, domain.RoleKitchen)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	orders, err := c.ListOrders(context.Background(), OrderFilter{
		Statuses: []domain.Status{domain.StatusNew, domain.StatusInKitchen},
		StaffID:  "w7",
		From:     from,
	})
	require.NoError(t, err)
	require.Len(t, orders, 1)

	assert.Equal(t, "kitchen", gotRole)
	assert.Equal(t, []string{"new", "in_kitchen"}, gotQuery["status"])
	assert.Equal(t, []string{"w7"}, gotQuery["staff_id"])
	assert.Equal(t, []string{"2026-03-01T00:00:00Z"}, gotQuery["from"])
}

func TestUpdateStatusMapsForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "kitchen may not deliver"})
	}))
	defer srv.Close()

	c := New(srv.URL, domain.RoleKitchen)
	_, err := c.UpdateStatus(context.Background(), "o1", domain.StatusDelivered)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Contains(t, err.Error(), "kitchen may not deliver")
}

func TestUpdateStatusMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL, domain.RoleWaiter)
	_, err := c.UpdateStatus(context.Background(), "missing", domain.StatusDelivered)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestNetworkFailureIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := New(srv.URL, domain.RoleWaiter)
	_, err := c.ListOrders(context.Background(), OrderFilter{})
	require.Error(t, err)
	assert.True(t, domain.IsNetwork(err))
}

func TestSetAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/p1/availability", r.URL.Path)
		var body map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.False(t, body["available"])
		_ = json.NewEncoder(w).Encode(domain.Product{ID: "p1", Available: false})
	}))
	defer srv.Close()

	c := New(srv.URL, domain.RoleAdmin)
	p, err := c.SetAvailability(context.Background(), "p1", false)
	require.NoError(t, err)
	assert.False(t, p.Available)
}

// Package handlers exposes the order API over HTTP. The acting role arrives
// in the X-Role header; token mechanics live outside this service.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"restaurant-sync/internal/common/logger"
	"restaurant-sync/internal/domain"
	"restaurant-sync/internal/server/repository"
	"restaurant-sync/internal/server/service"
)

type Handler struct {
	orders   *service.OrderService
	products *service.ProductService
	log      *logger.Logger
}

func New(orders *service.OrderService, products *service.ProductService, log *logger.Logger) *Handler {
	return &Handler{orders: orders, products: products, log: log}
}

// Router wires all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Post("/", h.createOrder)
		r.Get("/{id}", h.getOrder)
		r.Patch("/{id}/status", h.changeStatus)
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Patch("/{id}/availability", h.setAvailability)
	})
	return r
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	f := repository.Filter{StaffID: r.URL.Query().Get("staff_id")}
	for _, s := range r.URL.Query()["status"] {
		st := domain.Status(s)
		if !st.Known() {
			h.writeError(w, http.StatusBadRequest, "unknown status "+s)
			return
		}
		f.Statuses = append(f.Statuses, st)
	}
	var err error
	if f.From, err = parseTime(r.URL.Query().Get("from")); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad from timestamp")
		return
	}
	if f.To, err = parseTime(r.URL.Query().Get("to")); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad to timestamp")
		return
	}

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	order, err := h.orders.Create(r.Context(), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(r.Header.Get("X-Role"))
	if !role.Known() {
		h.writeError(w, http.StatusForbidden, "unknown role")
		return
	}
	var req struct {
		Status domain.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if !req.Status.Known() {
		h.writeError(w, http.StatusBadRequest, "unknown status "+string(req.Status))
		return
	}

	order, err := h.orders.ChangeStatus(r.Context(), chi.URLParam(r, "id"), req.Status, role)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) setAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Available bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	p, err := h.products.SetAvailability(r.Context(), chi.URLParam(r, "id"), req.Available)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// writeFailure maps the error taxonomy onto status codes.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrStale):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalid):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("request_failed", err, map[string]any{"path": r.URL.Path})
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, map[string]string{"error": msg})
}

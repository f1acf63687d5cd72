package httpx

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"net/http"
	"strconv"
	"strings"
)

var errNotYourOrder = apperr.Forbidden("order belongs to another user")

type OrderService interface {
	Place(ctx context.Context, in orders.PlaceInput) (*orders.Placed, error)
	Transition(ctx context.Context, id uuid.UUID, action orders.Action, message string) (*orders.Order, error)
	Get(ctx context.Context, id uuid.UUID, inc orders.Includes) (*orders.Order, error)
	My(ctx context.Context, userID uuid.UUID, q orders.ListQuery) (*orders.OrderPage, error)
	All(ctx context.Context, q orders.ListQuery) (*orders.OrderPage, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CurrentStatus(ctx context.Context, id uuid.UUID) (*orders.StatusView, error)
}

type OrdersHandler struct {
	Orders  OrderService
	Cookies auth.Cookies
	Auth    *Auth
}

type PlaceOrderReq struct {
	CartID        *uuid.UUID             `json:"cart_id"`
	Address       orders.ShippingAddress `json:"shipping_address"`
	PaymentMethod orders.PaymentMethod   `json:"payment_method"`
	CouponCode    string                 `json:"coupon_code"`
}

type TransitionReq struct {
	Message string `json:"message"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.With(h.Auth.Authenticate).Get("/orders", h.my)
	r.With(h.Auth.Optional).Post("/orders", h.place)
	r.With(h.Auth.Admin).Get("/orders/all", h.all)
	r.With(h.Auth.Optional).Get("/orders/{id}", h.get)
	r.Get("/orders/{id}/status", h.status)
	r.With(h.Auth.Admin).Patch("/orders/{id}", h.transition)
	r.With(h.Auth.Admin).Delete("/orders/{id}", h.delete)
}

// place checks out the caller's cart. A repeated Idempotency-Key answers
// 200 with the order created the first time.
func (h *OrdersHandler) place(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cart := cartID(r)
	if cart == nil {
		cart = req.CartID
	}
	if cart == nil {
		writeError(w, r, errNoCart)
		return
	}

	in := orders.PlaceInput{
		CartID:         *cart,
		Address:        req.Address,
		PaymentMethod:  req.PaymentMethod,
		CouponCode:     req.CouponCode,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if p, ok := ProfileFrom(r.Context()); ok {
		id := p.ID
		in.UserID = &id
	}

	placed, err := h.Orders.Place(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if placed.NewCartID != uuid.Nil {
		h.Cookies.SetCart(w, placed.NewCartID)
	}
	code, msg := http.StatusCreated, "Order placed"
	if placed.Existed {
		code, msg = http.StatusOK, "Order already placed"
	}
	writeJSON(w, code, map[string]any{
		"success":    true,
		"message":    msg,
		"order":      placed.Order,
		"cart_id":    placed.NewCartID,
		"idempotent": placed.Existed,
	})
}

func orderIncludes(r *http.Request) orders.Includes {
	f := queryFlags(r)
	if f["all"] {
		return orders.IncludeAll
	}
	return orders.Includes{
		Items:    f["items"],
		Address:  f["address"] || f["shipping_address"],
		Cost:     f["cost"],
		Payment:  f["payment"],
		Statuses: f["statuses"] || f["status"],
	}
}

func orderQuery(r *http.Request) (orders.ListQuery, error) {
	q := r.URL.Query()
	lq := orders.ListQuery{
		Search:   q.Get("search"),
		Phone:    q.Get("phone"),
		Status:   orders.Status(strings.ToUpper(q.Get("status"))),
		SortBy:   q.Get("sortBy"),
		SortDesc: sortDesc(r),
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
		Includes: orderIncludes(r),
	}
	if v := q.Get("subtotal"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return lq, apperr.Validation("subtotal must be a number")
		}
		lq.SubtotalMax = &n
	}
	if v := q.Get("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return lq, errInvalidID
		}
		lq.UserID = &id
	}
	return lq, nil
}

func (h *OrdersHandler) my(w http.ResponseWriter, r *http.Request) {
	p, _ := ProfileFrom(r.Context())
	lq, err := orderQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Orders.My(r.Context(), p.ID, lq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": page})
}

func (h *OrdersHandler) all(w http.ResponseWriter, r *http.Request) {
	lq, err := orderQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Orders.All(r.Context(), lq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": page})
}

// get serves guest orders to anyone holding the id; account orders only
// to their owner or an admin.
func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.Get(r.Context(), id, orderIncludes(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if o.UserID != nil {
		p, ok := ProfileFrom(r.Context())
		if !ok {
			writeError(w, r, auth.ErrMissingToken)
			return
		}
		if p.ID != *o.UserID && !p.IsAdmin() {
			writeError(w, r, errNotYourOrder)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": o})
}

func (h *OrdersHandler) status(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.Orders.CurrentStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": v.Status, "updated_at": v.UpdatedAt})
}

func (h *OrdersHandler) transition(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	action, err := orders.ParseAction(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req TransitionReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.Transition(r.Context(), id, action, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Order status updated", "order", o)
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Orders.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Order deleted", "", nil)
}

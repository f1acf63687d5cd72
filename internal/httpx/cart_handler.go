package httpx

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/carts"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"net/http"
)

var (
	errNoCart          = apperr.NotFound("cart not found")
	errInvalidCartVerb = apperr.Validation("action must be increase, decrease, update-quantity or clear")
	errNotYourCart     = apperr.Forbidden("cart belongs to another session")
)

type CartService interface {
	Create(ctx context.Context, ref carts.ItemRef) (*carts.Cart, error)
	AddItem(ctx context.Context, cartID uuid.UUID, ref carts.ItemRef) (*carts.Cart, error)
	Increase(ctx context.Context, cartID uuid.UUID, ref carts.ItemRef) (*carts.Cart, error)
	Decrease(ctx context.Context, cartID uuid.UUID, ref carts.ItemRef) (*carts.Cart, error)
	UpdateQuantity(ctx context.Context, cartID uuid.UUID, ref carts.ItemRef, quantity int) (*carts.Cart, error)
	RemoveItem(ctx context.Context, cartID uuid.UUID, ref carts.ItemRef) (*carts.Cart, error)
	Clear(ctx context.Context, cartID uuid.UUID) (*carts.Cart, error)
	Delete(ctx context.Context, cartID uuid.UUID) error
	Get(ctx context.Context, cartID uuid.UUID) (*carts.Cart, error)
}

type CartHandler struct {
	Carts   CartService
	Cookies auth.Cookies
	Auth    *Auth
}

func (h *CartHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.Optional)
		r.Get("/cart", h.get)
		r.Post("/cart", h.add)
		r.Patch("/cart", h.update)
		r.Delete("/cart", h.removeItem)
		r.Delete("/cart/{id}", h.delete)
	})
}

// cartID prefers the cookie and falls back to the cart recorded on the
// signed-in profile.
func cartID(r *http.Request) *uuid.UUID {
	if id := auth.CartFromRequest(r); id != nil {
		return id
	}
	if p, ok := ProfileFrom(r.Context()); ok && p.CartID != nil {
		return p.CartID
	}
	return nil
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	id := cartID(r)
	if id == nil {
		writeError(w, r, errNoCart)
		return
	}
	c, err := h.Carts.Get(r.Context(), *id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "cart": c})
}

// add creates the cart on the first item and hands its id back as a cookie.
func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var ref carts.ItemRef
	if err := decodeJSON(r, &ref); err != nil {
		writeError(w, r, err)
		return
	}
	id := cartID(r)
	if id == nil {
		c, err := h.Carts.Create(r.Context(), ref)
		if err != nil {
			writeError(w, r, err)
			return
		}
		h.Cookies.SetCart(w, c.ID)
		writeOK(w, http.StatusCreated, "Cart created", "cart", c)
		return
	}
	c, err := h.Carts.AddItem(r.Context(), *id, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Item added to cart", "cart", c)
}

type cartUpdateReq struct {
	carts.ItemRef
	Quantity int `json:"quantity"`
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	id := cartID(r)
	if id == nil {
		writeError(w, r, errNoCart)
		return
	}
	var req cartUpdateReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var (
		c   *carts.Cart
		err error
	)
	ctx := r.Context()
	switch r.URL.Query().Get("action") {
	case "increase":
		c, err = h.Carts.Increase(ctx, *id, req.ItemRef)
	case "decrease":
		c, err = h.Carts.Decrease(ctx, *id, req.ItemRef)
	case "update-quantity":
		c, err = h.Carts.UpdateQuantity(ctx, *id, req.ItemRef, req.Quantity)
	case "clear":
		c, err = h.Carts.Clear(ctx, *id)
	default:
		err = errInvalidCartVerb
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Cart updated", "cart", c)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	id := cartID(r)
	if id == nil {
		writeError(w, r, errNoCart)
		return
	}
	var ref carts.ItemRef
	if err := decodeJSON(r, &ref); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Carts.RemoveItem(r.Context(), *id, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Item removed from cart", "cart", c)
}

// delete drops a whole cart. Only its holder or an admin may do so.
func (h *CartHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	own := cartID(r)
	p, _ := ProfileFrom(r.Context())
	if (own == nil || *own != id) && (p == nil || !p.IsAdmin()) {
		writeError(w, r, errNotYourCart)
		return
	}
	if err := h.Carts.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if own != nil && *own == id {
		h.Cookies.ClearCart(w)
	}
	writeOK(w, http.StatusOK, "Cart deleted", "", nil)
}

package httpx

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/discounts"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"net/http"
)

type DiscountService interface {
	Create(ctx context.Context, in discounts.Input) (*discounts.Discount, error)
	Get(ctx context.Context, id uuid.UUID) (*discounts.Discount, error)
	List(ctx context.Context, f discounts.ListFilter) ([]discounts.Discount, error)
	Update(ctx context.Context, id uuid.UUID, in discounts.Input) (*discounts.Discount, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CreateCoupon(ctx context.Context, in discounts.CouponInput) (*discounts.Coupon, error)
	GetCoupon(ctx context.Context, id uuid.UUID) (*discounts.Coupon, error)
	ListCoupons(ctx context.Context, f discounts.CouponFilter) ([]discounts.Coupon, error)
	UpdateCoupon(ctx context.Context, id uuid.UUID, in discounts.CouponInput) (*discounts.Coupon, error)
	DeleteCoupon(ctx context.Context, id uuid.UUID) error
}

type ShippingService interface {
	Get(ctx context.Context) (*orders.ShippingCharge, error)
	Create(ctx context.Context, charge int64) (*orders.ShippingCharge, error)
	Update(ctx context.Context, id uuid.UUID, charge int64) (*orders.ShippingCharge, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PricingHandler serves discounts, coupons and the shipping charge.
type PricingHandler struct {
	Discounts DiscountService
	Shipping  ShippingService
	Auth      *Auth
}

func (h *PricingHandler) Register(r chi.Router) {
	r.Get("/discounts", h.listDiscounts)
	r.Get("/discounts/{id}", h.getDiscount)
	r.Get("/coupons", h.listCoupons)
	r.Get("/coupons/{id}", h.getCoupon)
	r.Get("/shipping", h.getShipping)

	r.Group(func(r chi.Router) {
		r.Use(h.Auth.Admin)
		r.Post("/discounts", h.createDiscount)
		r.Patch("/discounts/{id}", h.updateDiscount)
		r.Delete("/discounts/{id}", h.deleteDiscount)

		r.Post("/coupons", h.createCoupon)
		r.Patch("/coupons/{id}", h.updateCoupon)
		r.Delete("/coupons/{id}", h.deleteCoupon)

		r.Post("/shipping", h.createShipping)
		r.Put("/shipping", h.updateShipping)
		r.Delete("/shipping", h.deleteShipping)
	})
}

func (h *PricingHandler) listDiscounts(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Discounts.List(r.Context(), discounts.ListFilter{
		Search: r.URL.Query().Get("search"),
		Active: queryBool(r, "active"),
		Brand:  r.URL.Query().Get("brand"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "discounts": ds})
}

func (h *PricingHandler) getDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Discounts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "discount": d})
}

func (h *PricingHandler) createDiscount(w http.ResponseWriter, r *http.Request) {
	var in discounts.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Discounts.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Discount created", "discount", d)
}

func (h *PricingHandler) updateDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in discounts.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Discounts.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Discount updated", "discount", d)
}

func (h *PricingHandler) deleteDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Discounts.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Discount deleted", "", nil)
}

func (h *PricingHandler) listCoupons(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Discounts.ListCoupons(r.Context(), discounts.CouponFilter{
		Search: r.URL.Query().Get("search"),
		Active: queryBool(r, "active"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "coupons": cs})
}

func (h *PricingHandler) getCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Discounts.GetCoupon(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "coupon": c})
}

func (h *PricingHandler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var in discounts.CouponInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Discounts.CreateCoupon(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Coupon created", "coupon", c)
}

func (h *PricingHandler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in discounts.CouponInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Discounts.UpdateCoupon(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Coupon updated", "coupon", c)
}

func (h *PricingHandler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Discounts.DeleteCoupon(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Coupon deleted", "", nil)
}

type shippingReq struct {
	ID     uuid.UUID `json:"id"`
	Charge int64     `json:"charge"`
}

func (h *PricingHandler) getShipping(w http.ResponseWriter, r *http.Request) {
	c, err := h.Shipping.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "shipping": c})
}

func (h *PricingHandler) createShipping(w http.ResponseWriter, r *http.Request) {
	var req shippingReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Shipping.Create(r.Context(), req.Charge)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Shipping charge created", "shipping", c)
}

func (h *PricingHandler) updateShipping(w http.ResponseWriter, r *http.Request) {
	var req shippingReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ID == uuid.Nil {
		writeError(w, r, errInvalidID)
		return
	}
	c, err := h.Shipping.Update(r.Context(), req.ID, req.Charge)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Shipping charge updated", "shipping", c)
}

func (h *PricingHandler) deleteShipping(w http.ResponseWriter, r *http.Request) {
	var req shippingReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ID == uuid.Nil {
		writeError(w, r, errInvalidID)
		return
	}
	if err := h.Shipping.Delete(r.Context(), req.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Shipping charge deleted", "", nil)
}

package httpx

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"net/http"
)

var errInvalidStockAction = apperr.Validation("action must be increase or decrease")

type InventoryService interface {
	Create(ctx context.Context, productID uuid.UUID, quantity int, attrs []inventory.AttributeInput) (*inventory.Inventory, error)
	Get(ctx context.Context, id uuid.UUID) (*inventory.Inventory, error)
	SetQuantity(ctx context.Context, id uuid.UUID, quantity *int) (*inventory.Inventory, error)
	Increase(ctx context.Context, id uuid.UUID, n int) (*inventory.Inventory, error)
	Decrease(ctx context.Context, id uuid.UUID, n int) (*inventory.Inventory, error)
	Clone(ctx context.Context, id uuid.UUID) (*inventory.Inventory, error)
	Remove(ctx context.Context, id uuid.UUID) error
	AddAttribute(ctx context.Context, inventoryID uuid.UUID, in inventory.AttributeInput) (*inventory.Inventory, error)
	UpdateAttribute(ctx context.Context, inventoryID, attributeID uuid.UUID, in inventory.AttributeInput) (*inventory.Inventory, error)
	RemoveAttribute(ctx context.Context, inventoryID, attributeID uuid.UUID) (*inventory.Inventory, error)
}

type InventoryHandler struct {
	Inventories InventoryService
	Auth        *Auth
}

func (h *InventoryHandler) Register(r chi.Router) {
	r.Get("/inventories/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.Admin)
		r.Patch("/inventories/{id}", h.quantity)
		r.Delete("/inventories/{id}", h.remove)
		r.Post("/inventories/{id}/clone", h.clone)
		r.Post("/inventories/{id}/attributes", h.addAttribute)
		r.Patch("/inventories/{id}/attributes/{attrID}", h.updateAttribute)
		r.Delete("/inventories/{id}/attributes/{attrID}", h.removeAttribute)
	})
}

func (h *InventoryHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.Inventories.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "inventory": inv})
}

type quantityReq struct {
	Quantity *int `json:"quantity"`
}

// quantity sets the stock, or moves it by the given amount when
// ?action=increase|decrease is present (default step 1).
func (h *InventoryHandler) quantity(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req quantityReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var inv *inventory.Inventory
	switch action := r.URL.Query().Get("action"); action {
	case "":
		inv, err = h.Inventories.SetQuantity(r.Context(), id, req.Quantity)
	case "increase", "decrease":
		n := 1
		if req.Quantity != nil {
			n = *req.Quantity
		}
		if action == "increase" {
			inv, err = h.Inventories.Increase(r.Context(), id, n)
		} else {
			inv, err = h.Inventories.Decrease(r.Context(), id, n)
		}
	default:
		err = errInvalidStockAction
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Inventory updated", "inventory", inv)
}

func (h *InventoryHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Inventories.Remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Inventory deleted", "", nil)
}

func (h *InventoryHandler) clone(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.Inventories.Clone(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Inventory cloned", "inventory", inv)
}

func (h *InventoryHandler) addAttribute(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in inventory.AttributeInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.Inventories.AddAttribute(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Attribute added", "inventory", inv)
}

func (h *InventoryHandler) updateAttribute(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	attrID, err := urlID(r, "attrID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in inventory.AttributeInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.Inventories.UpdateAttribute(r.Context(), id, attrID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Attribute updated", "inventory", inv)
}

func (h *InventoryHandler) removeAttribute(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	attrID, err := urlID(r, "attrID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.Inventories.RemoveAttribute(r.Context(), id, attrID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Attribute removed", "inventory", inv)
}

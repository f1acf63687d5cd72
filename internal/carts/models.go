package carts

import (
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/google/uuid"
	"time"
)

// ItemRef identifies a cart line: one per (product, variant) pair.
type ItemRef struct {
	ProductID   uuid.UUID `json:"product_id"`
	InventoryID uuid.UUID `json:"inventory_id"`
}

type Item struct {
	ItemRef
	Quantity  int                  `json:"quantity"`
	Product   *catalog.Product     `json:"product,omitempty"`
	Inventory *inventory.Inventory `json:"inventory,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// Cart totals are computed on read from the current product prices.
type Cart struct {
	ID              uuid.UUID `json:"id"`
	Items           []Item    `json:"items"`
	Total           int64     `json:"total"`
	DiscountedTotal int64     `json:"discounted_total"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

package inventory

import (
	"github.com/google/uuid"
	"time"
)

type Attribute struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Value string    `json:"value"`
}

// Inventory is one sellable variant of a product.
type Inventory struct {
	ID         uuid.UUID   `json:"id"`
	ProductID  uuid.UUID   `json:"product_id"`
	Quantity   int         `json:"quantity"`
	Attributes []Attribute `json:"attributes"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type AttributeInput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Line is a quantity of one variant, used to reserve and restore stock.
type Line struct {
	InventoryID uuid.UUID `json:"inventory_id"`
	Quantity    int       `json:"quantity"`
}

// Shortage describes a line that could not be served.
type Shortage struct {
	InventoryID uuid.UUID `json:"inventory_id"`
	Required    int       `json:"required"`
	Available   int       `json:"available"`
}

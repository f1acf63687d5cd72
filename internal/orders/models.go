package orders

import (
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/google/uuid"
	"time"
)

type Order struct {
	ID         uuid.UUID        `json:"id"`
	ExternalID *string          `json:"external_id,omitempty"`
	UserID     *uuid.UUID       `json:"user_id"`
	CouponCode *string          `json:"coupon_code,omitempty"`
	Status     Status           `json:"status"` // latest entry of Statuses
	Items      []Item           `json:"items,omitempty"`
	Address    *ShippingAddress `json:"shipping_address,omitempty"`
	Cost       *Cost            `json:"cost,omitempty"`
	Payment    *Payment         `json:"payment,omitempty"`
	Statuses   []StatusEntry    `json:"statuses,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Item is a snapshot of a cart line at checkout. It does not follow later
// edits of the product.
type Item struct {
	ID              uuid.UUID             `json:"id"`
	ProductID       uuid.UUID             `json:"product_id"`
	InventoryID     uuid.UUID             `json:"inventory_id"`
	Name            string                `json:"name"`
	Brand           string                `json:"brand"`
	Attributes      []inventory.Attribute `json:"attributes"`
	BasePrice       int64                 `json:"base_price"`
	DiscountedPrice int64                 `json:"discounted_price"`
	Quantity        int                   `json:"quantity"`
}

type ShippingAddress struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	UrgentPhone   string `json:"urgent_phone"`
	Email         string `json:"email"`
	District      string `json:"district"`
	PoliceStation string `json:"police_station"`
	Address       string `json:"address"`
	Note          string `json:"note"`
}

type Cost struct {
	Total    int64 `json:"total"`
	Offer    int64 `json:"offer"`
	Tax      int64 `json:"tax"`
	Shipping int64 `json:"shipping"`
	Subtotal int64 `json:"subtotal"`
}

type StatusEntry struct {
	ID        uuid.UUID `json:"id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Includes struct {
	Items    bool
	Address  bool
	Cost     bool
	Payment  bool
	Statuses bool
}

var IncludeAll = Includes{Items: true, Address: true, Cost: true, Payment: true, Statuses: true}

type ListQuery struct {
	Search      string // order id or address text
	Phone       string
	SubtotalMax *int64
	Status      Status // current status
	UserID      *uuid.UUID
	SortBy      string // created_at | subtotal
	SortDesc    bool
	Page        int
	Limit       int
	Includes
}

type OrderPage struct {
	Orders      []Order `json:"orders"`
	Total       int     `json:"total"`
	CurrentPage int     `json:"current_page"`
	Limit       int     `json:"limit"`
}

type PlaceInput struct {
	CartID         uuid.UUID
	UserID         *uuid.UUID
	Address        ShippingAddress
	PaymentMethod  PaymentMethod
	CouponCode     string
	IdempotencyKey string
}

// Placed is the result of a checkout. Existed is set when the idempotency
// key matched an earlier order and nothing new was created.
type Placed struct {
	Order     *Order    `json:"order"`
	NewCartID uuid.UUID `json:"cart_id"`
	Existed   bool      `json:"idempotent"`
}

package catalog

import (
	"github.com/ariefcatur/go-storefront/internal/discounts"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/google/uuid"
	"time"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

func (s Status) Valid() bool { return s == StatusActive || s == StatusInactive }

// Product.DiscountedPrice is derived on every read and never stored.
type Product struct {
	ID              uuid.UUID             `json:"id"`
	Name            string                `json:"name"`
	Slug            string                `json:"slug"`
	Description     string                `json:"description"`
	Brand           string                `json:"brand"`
	Model           string                `json:"model"`
	Tags            []string              `json:"tags"`
	Price           int64                 `json:"price"`
	DiscountedPrice int64                 `json:"discounted_price"`
	Status          Status                `json:"status"`
	CategoryID      uuid.UUID             `json:"category_id"`
	Discount        *discounts.Discount   `json:"discount"`
	Inventories     []inventory.Inventory `json:"inventories,omitempty"`
	Images          []Image               `json:"images,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

type Image struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	URL       string    `json:"url"`
	Key       string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Category struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	ParentID   *uuid.UUID `json:"parent_id"`
	DiscountID *uuid.UUID `json:"discount_id,omitempty"`
	BannerURL  string     `json:"banner_url"`
	BannerKey  string     `json:"-"`
	IconURL    string     `json:"icon_url"`
	IconKey    string     `json:"-"`
	Children   []Category `json:"children,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Slide is a hero slider image on the storefront home page.
type Slide struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Key       string    `json:"-"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"created_at"`
}

type Includes struct {
	Inventories bool
	Images      bool
}

type ListQuery struct {
	Search     string
	Brand      string
	CategoryID *uuid.UUID
	Status     Status
	SortBy     string // name | price | created_at
	SortDesc   bool
	Page       int
	Limit      int
	Includes
}

type ProductPage struct {
	Products    []Product `json:"products"`
	Total       int       `json:"total"`
	CurrentPage int       `json:"current_page"`
	Limit       int       `json:"limit"`
}

// Folders are the storage prefixes for uploaded assets.
type Folders struct {
	CategoryBanner string
	CategoryIcon   string
	ProductImage   string
	HeroSlider     string
}

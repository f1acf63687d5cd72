package discounts

import (
	"github.com/google/uuid"
	"time"
)

type Discount struct {
	ID                 uuid.UUID   `json:"id"`
	Name               string      `json:"name"`
	Description        string      `json:"description"`
	Percentage         *int        `json:"percentage,omitempty"`
	Amount             *int64      `json:"amount,omitempty"`
	UptoLimit          *int64      `json:"upto_limit,omitempty"`
	MinimumOrderAmount *int64      `json:"minimum_order_amount,omitempty"`
	StartDate          time.Time   `json:"start_date"`
	EndDate            time.Time   `json:"end_date"`
	Active             bool        `json:"active"`
	SubDiscount        bool        `json:"sub_discount"`
	Brands             []string    `json:"brands"`
	ProductIDs         []uuid.UUID `json:"product_ids,omitempty"`
	CategoryIDs        []uuid.UUID `json:"category_ids,omitempty"`
	Coupon             *Coupon     `json:"coupon,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// Coupon is a discount redeemed by code at checkout. Limit 0 = unlimited.
type Coupon struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	DiscountID uuid.UUID `json:"discount_id"`
	Active     bool      `json:"active"`
	Limit      int       `json:"limit"`
	UsedTimes  int       `json:"used_times"`
	Discount   *Discount `json:"discount,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Input is the writable part of a discount.
type Input struct {
	Name               string      `json:"name"`
	Description        string      `json:"description"`
	Percentage         *int        `json:"percentage"`
	Amount             *int64      `json:"amount"`
	UptoLimit          *int64      `json:"upto_limit"`
	MinimumOrderAmount *int64      `json:"minimum_order_amount"`
	StartDate          time.Time   `json:"start_date"`
	EndDate            time.Time   `json:"end_date"`
	Active             *bool       `json:"active"`
	SubDiscount        *bool       `json:"sub_discount"`
	Brands             []string    `json:"brands"`
	ProductIDs         []uuid.UUID `json:"product_ids"`
	CategoryIDs        []uuid.UUID `json:"category_ids"`
}

type CouponInput struct {
	Code  string `json:"coupon_code"`
	Limit int    `json:"limit"`
	Input
}

type ListFilter struct {
	Search string
	Active *bool
	Brand  string
}

type CouponFilter struct {
	Search string
	Active *bool
}

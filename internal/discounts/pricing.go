package discounts

import (
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"strings"
	"time"
)

var (
	ErrNameRequired       = apperr.Validation("name is required")
	ErrValueRequired      = apperr.Validation("percentage or amount is required")
	ErrValueAmbiguous     = apperr.Validation("percentage and amount are mutually exclusive")
	ErrPercentageRange    = apperr.Validation("percentage must be between 1 and 100")
	ErrAmountNotPositive  = apperr.Validation("amount must be greater than zero")
	ErrEndDateRequired    = apperr.Validation("end date is required")
	ErrEndBeforeStart     = apperr.Validation("end date is before start date")
	ErrCouponLinksProduct = apperr.Validation("coupon discounts cannot be linked to products or categories")
)

// IsActiveAt reports whether d applies at now. The start date is inclusive
// and the end date counts through the end of that day.
func (d *Discount) IsActiveAt(now time.Time) bool {
	if d == nil || !d.Active {
		return false
	}
	if now.Before(d.StartDate) {
		return false
	}
	return now.Before(endOfDay(d.EndDate))
}

func endOfDay(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}

// Apply returns the price after d. A discount that would leave nothing to
// pay is ignored and the base price is returned with applied=false.
func Apply(price int64, d *Discount) (discounted int64, applied bool) {
	if d == nil {
		return price, false
	}
	switch {
	case d.Percentage != nil:
		discounted = price * int64(100-*d.Percentage) / 100
	case d.Amount != nil:
		discounted = price - *d.Amount
	default:
		return price, false
	}
	if discounted <= 0 {
		return price, false
	}
	return discounted, true
}

// Reduction is the amount a coupon takes off an order total, bounded by
// the upto limit and by the total itself.
func (d *Discount) Reduction(total int64) int64 {
	var off int64
	switch {
	case d.Percentage != nil:
		off = total * int64(*d.Percentage) / 100
	case d.Amount != nil:
		off = *d.Amount
	}
	if d.UptoLimit != nil && *d.UptoLimit > 0 && off > *d.UptoLimit {
		off = *d.UptoLimit
	}
	if off > total {
		off = total
	}
	if off < 0 {
		off = 0
	}
	return off
}

func (in *Input) normalize(now time.Time) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.Percentage == nil && in.Amount == nil {
		return ErrValueRequired
	}
	if in.Percentage != nil && in.Amount != nil {
		return ErrValueAmbiguous
	}
	if in.Percentage != nil && (*in.Percentage < 1 || *in.Percentage > 100) {
		return ErrPercentageRange
	}
	if in.Amount != nil && *in.Amount <= 0 {
		return ErrAmountNotPositive
	}
	if in.StartDate.IsZero() {
		in.StartDate = now
	}
	if in.EndDate.IsZero() {
		return ErrEndDateRequired
	}
	if !endOfDay(in.EndDate).After(in.StartDate) {
		return ErrEndBeforeStart
	}
	for i, b := range in.Brands {
		in.Brands[i] = strings.ToLower(strings.TrimSpace(b))
	}
	return nil
}

func (in Input) toDiscount() *Discount {
	d := &Discount{
		Name:               in.Name,
		Description:        in.Description,
		Percentage:         in.Percentage,
		Amount:             in.Amount,
		UptoLimit:          in.UptoLimit,
		MinimumOrderAmount: in.MinimumOrderAmount,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		Active:             true,
		Brands:             in.Brands,
		ProductIDs:         in.ProductIDs,
		CategoryIDs:        in.CategoryIDs,
	}
	if in.Active != nil {
		d.Active = *in.Active
	}
	if in.SubDiscount != nil {
		d.SubDiscount = *in.SubDiscount
	}
	if d.Brands == nil {
		d.Brands = []string{}
	}
	return d
}

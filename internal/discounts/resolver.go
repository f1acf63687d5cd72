package discounts

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/google/uuid"
	"time"
)

// Source exposes the product and category links the resolver walks.
// Either discount may be nil. A missing row is reported as apperr NotFound.
type Source interface {
	ProductDiscount(ctx context.Context, productID uuid.UUID) (categoryID *uuid.UUID, d *Discount, err error)
	CategoryDiscount(ctx context.Context, categoryID uuid.UUID) (parentID *uuid.UUID, d *Discount, err error)
}

// Resolver picks the discount that applies to a product: the nearest
// category (leaf to root) with a discount in window, else the product's own.
type Resolver struct {
	src Source
	now func() time.Time
}

func NewResolver(src Source) *Resolver {
	return &Resolver{src: src, now: time.Now}
}

// Resolve returns nil when no discount applies. Unknown products are not an error.
func (r *Resolver) Resolve(ctx context.Context, productID uuid.UUID) (*Discount, error) {
	now := r.now()

	categoryID, own, err := r.src.ProductDiscount(ctx, productID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	seen := map[uuid.UUID]bool{}
	for categoryID != nil && !seen[*categoryID] {
		seen[*categoryID] = true
		parentID, d, err := r.src.CategoryDiscount(ctx, *categoryID)
		if apperr.KindOf(err) == apperr.KindNotFound {
			break
		}
		if err != nil {
			return nil, err
		}
		if d.IsActiveAt(now) {
			return d, nil
		}
		categoryID = parentID
	}

	if own.IsActiveAt(now) {
		return own, nil
	}
	return nil, nil
}

// ResolveID is Resolve for a raw id; a malformed id is a validation error.
func (r *Resolver) ResolveID(ctx context.Context, productID string) (*Discount, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, apperr.Validation("invalid product id")
	}
	return r.Resolve(ctx, id)
}

// Price resolves the discount for productID and applies it to base.
// The returned discount is nil when none applies or when it was discarded.
func (r *Resolver) Price(ctx context.Context, productID uuid.UUID, base int64) (int64, *Discount, error) {
	d, err := r.Resolve(ctx, productID)
	if err != nil {
		return base, nil, err
	}
	price, applied := Apply(base, d)
	if !applied {
		return base, nil, nil
	}
	return price, d, nil
}

package discounts

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"strings"
)

func (in *CouponInput) normalize(s *Service) error {
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" {
		return ErrCouponRequired
	}
	if in.Limit < 0 {
		return apperr.Validation("limit cannot be negative")
	}
	if len(in.ProductIDs) > 0 || len(in.CategoryIDs) > 0 {
		return ErrCouponLinksProduct
	}
	if in.Name == "" {
		in.Name = "coupon"
	}
	return in.Input.normalize(s.now())
}

// CreateCoupon creates the coupon and its owning discount together.
func (s *Service) CreateCoupon(ctx context.Context, in CouponInput) (*Coupon, error) {
	if err := in.normalize(s); err != nil {
		return nil, err
	}
	d := in.toDiscount()
	c := &Coupon{Code: in.Code, Active: d.Active, Limit: in.Limit}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, d); err != nil {
			return err
		}
		c.DiscountID = d.ID
		return s.repo.CreateCoupon(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	c.Discount = d
	log.WithFields(log.Fields{"coupon_id": c.ID, "code": c.Code}).Info("coupon created")
	return c, nil
}

func (s *Service) GetCoupon(ctx context.Context, id uuid.UUID) (*Coupon, error) {
	c, err := s.repo.GetCoupon(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Discount, err = s.repo.Get(ctx, c.DiscountID); err != nil {
		return nil, err
	}
	c.Discount.Coupon = nil
	return c, nil
}

func (s *Service) ListCoupons(ctx context.Context, f CouponFilter) ([]Coupon, error) {
	return s.repo.ListCoupons(ctx, f)
}

func (s *Service) UpdateCoupon(ctx context.Context, id uuid.UUID, in CouponInput) (*Coupon, error) {
	if err := in.normalize(s); err != nil {
		return nil, err
	}
	var out *Coupon
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetCoupon(ctx, id)
		if err != nil {
			return err
		}
		d := in.toDiscount()
		d.ID = c.DiscountID
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		c.Code, c.Active, c.Limit = in.Code, d.Active, in.Limit
		if err := s.repo.UpdateCoupon(ctx, c); err != nil {
			return err
		}
		c.Discount = d
		out = c
		return nil
	})
	return out, err
}

// DeleteCoupon removes the coupon and its discount in one transaction.
func (s *Service) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetCoupon(ctx, id)
		if err != nil {
			return err
		}
		return s.repo.Delete(ctx, c.DiscountID)
	})
}

// CountUse bumps the usage counter outside of checkout.
func (s *Service) CountUse(ctx context.Context, id uuid.UUID) (*Coupon, error) {
	var out *Coupon
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetCoupon(ctx, id)
		if err != nil {
			return err
		}
		if c.Limit > 0 && c.UsedTimes >= c.Limit {
			return ErrCouponExhausted
		}
		if c.UsedTimes, err = s.repo.IncrementCouponUse(ctx, id); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// Redeem must run inside the caller's transaction: the coupon row is locked,
// validated against orderAmount and its counter incremented. It returns the
// amount taken off the order.
func (s *Service) Redeem(ctx context.Context, code string, orderAmount int64) (*Coupon, int64, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, 0, ErrCouponRequired
	}
	c, err := s.repo.GetCouponByCode(ctx, code, true)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, 0, ErrCouponNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	d, err := s.repo.Get(ctx, c.DiscountID)
	if err != nil {
		return nil, 0, err
	}
	if !c.Active || !d.Active {
		return nil, 0, ErrCouponInactive
	}
	if !d.IsActiveAt(s.now()) {
		return nil, 0, ErrCouponExpired
	}
	if c.Limit > 0 && c.UsedTimes >= c.Limit {
		return nil, 0, ErrCouponExhausted
	}
	if d.MinimumOrderAmount != nil && orderAmount < *d.MinimumOrderAmount {
		return nil, 0, ErrCouponMinimum
	}
	if c.UsedTimes, err = s.repo.IncrementCouponUse(ctx, c.ID); err != nil {
		return nil, 0, err
	}
	c.Discount = d
	return c, d.Reduction(orderAmount), nil
}

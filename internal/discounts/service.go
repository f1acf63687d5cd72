package discounts

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"time"
)

var (
	ErrDiscountNotFound = apperr.NotFound("discount not found")
	ErrCouponNotFound   = apperr.NotFound("coupon not found")
	ErrCouponRequired   = apperr.Validation("coupon code is required")
	ErrCouponInactive   = apperr.Conflict("coupon is not active")
	ErrCouponExpired    = apperr.Conflict("coupon is expired or not yet valid")
	ErrCouponExhausted  = apperr.Conflict("coupon usage limit reached")
	ErrCouponMinimum    = apperr.Conflict("order amount is below the coupon minimum")
)

type Repository interface {
	Create(ctx context.Context, d *Discount) error
	Get(ctx context.Context, id uuid.UUID) (*Discount, error)
	List(ctx context.Context, f ListFilter) ([]Discount, error)
	Update(ctx context.Context, d *Discount) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetLinks(ctx context.Context, table string, discountID uuid.UUID, ids []uuid.UUID) error

	CreateCoupon(ctx context.Context, c *Coupon) error
	GetCoupon(ctx context.Context, id uuid.UUID) (*Coupon, error)
	GetCouponByCode(ctx context.Context, code string, lock bool) (*Coupon, error)
	ListCoupons(ctx context.Context, f CouponFilter) ([]Coupon, error)
	UpdateCoupon(ctx context.Context, c *Coupon) error
	IncrementCouponUse(ctx context.Context, id uuid.UUID) (int, error)
}

type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	repo     Repository
	tx       UnitOfWork
	onChange []func(ctx context.Context)
	now      func() time.Time
}

func NewService(repo Repository, tx UnitOfWork) *Service {
	return &Service{repo: repo, tx: tx, now: time.Now}
}

// OnChange registers a hook fired after any discount write commits.
// Category tree cache invalidation hangs off this.
func (s *Service) OnChange(fn func(ctx context.Context)) {
	s.onChange = append(s.onChange, fn)
}

func (s *Service) changed(ctx context.Context) {
	for _, fn := range s.onChange {
		fn(ctx)
	}
}

func (s *Service) Create(ctx context.Context, in Input) (*Discount, error) {
	if err := in.normalize(s.now()); err != nil {
		return nil, err
	}
	d := in.toDiscount()
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, d); err != nil {
			return err
		}
		if err := s.repo.SetLinks(ctx, "products", d.ID, d.ProductIDs); err != nil {
			return err
		}
		return s.repo.SetLinks(ctx, "categories", d.ID, d.CategoryIDs)
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	log.WithFields(log.Fields{"discount_id": d.ID, "name": d.Name}).Info("discount created")
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Discount, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Discount, error) {
	return s.repo.List(ctx, f)
}

// Update replaces the discount fields and diffs its product and category links.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Discount, error) {
	if err := in.normalize(s.now()); err != nil {
		return nil, err
	}
	var out *Discount
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		old, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if old.Coupon != nil && (len(in.ProductIDs) > 0 || len(in.CategoryIDs) > 0) {
			return ErrCouponLinksProduct
		}
		d := in.toDiscount()
		d.ID = id
		d.Coupon = old.Coupon
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		if err := s.repo.SetLinks(ctx, "products", id, d.ProductIDs); err != nil {
			return err
		}
		if err := s.repo.SetLinks(ctx, "categories", id, d.CategoryIDs); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

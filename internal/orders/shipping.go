package orders

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"time"
)

var (
	ErrShippingNotFound = apperr.NotFound("shipping charge not found")
	ErrShippingExists   = apperr.Conflict("shipping charge already exists")
	ErrChargeNegative   = apperr.Validation("shipping charge cannot be negative")
)

// ShippingCharge is the single flat fee added to every order.
type ShippingCharge struct {
	ID        uuid.UUID `json:"id"`
	Charge    int64     `json:"charge"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ShippingRepository interface {
	Get(ctx context.Context) (*ShippingCharge, error)
	Create(ctx context.Context, c *ShippingCharge) error
	Update(ctx context.Context, c *ShippingCharge) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ShippingService struct{ repo ShippingRepository }

func NewShippingService(repo ShippingRepository) *ShippingService {
	return &ShippingService{repo: repo}
}

func (s *ShippingService) Get(ctx context.Context) (*ShippingCharge, error) { return s.repo.Get(ctx) }

func (s *ShippingService) Create(ctx context.Context, charge int64) (*ShippingCharge, error) {
	if charge < 0 {
		return nil, ErrChargeNegative
	}
	if _, err := s.repo.Get(ctx); err == nil {
		return nil, ErrShippingExists
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}
	c := &ShippingCharge{ID: uuid.New(), Charge: charge}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ShippingService) Update(ctx context.Context, id uuid.UUID, charge int64) (*ShippingCharge, error) {
	if charge < 0 {
		return nil, ErrChargeNegative
	}
	c := &ShippingCharge{ID: id, Charge: charge}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ShippingService) Delete(ctx context.Context, id uuid.UUID) error { return s.repo.Delete(ctx, id) }

// Current returns the configured charge, 0 when none is set.
func (s *ShippingService) Current(ctx context.Context) (int64, error) {
	c, err := s.repo.Get(ctx)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.Charge, nil
}

type ShippingRepo struct{ DB *pgxpool.Pool }

func (r *ShippingRepo) Get(ctx context.Context) (*ShippingCharge, error) {
	var c ShippingCharge
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT id, charge, updated_at FROM shipping_charges ORDER BY updated_at DESC LIMIT 1`,
	).Scan(&c.ID, &c.Charge, &c.UpdatedAt)
	if err != nil {
		return nil, postgres.Translate(err, "shipping charge")
	}
	return &c, nil
}

func (r *ShippingRepo) Create(ctx context.Context, c *ShippingCharge) error {
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`INSERT INTO shipping_charges(id, charge) VALUES ($1,$2) RETURNING updated_at`, c.ID, c.Charge,
	).Scan(&c.UpdatedAt)
	return postgres.Translate(err, "shipping charge")
}

func (r *ShippingRepo) Update(ctx context.Context, c *ShippingCharge) error {
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`UPDATE shipping_charges SET charge=$2, updated_at=now() WHERE id=$1 RETURNING updated_at`, c.ID, c.Charge,
	).Scan(&c.UpdatedAt)
	return postgres.Translate(err, "shipping charge")
}

func (r *ShippingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx, `DELETE FROM shipping_charges WHERE id=$1`, id)
	if err != nil {
		return postgres.Translate(err, "shipping charge")
	}
	if ct.RowsAffected() == 0 {
		return ErrShippingNotFound
	}
	return nil
}

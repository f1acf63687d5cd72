package discounts

import (
	"context"
	"strings"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/google/uuid"
)

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type memRepo struct {
	mu        sync.Mutex
	discounts map[uuid.UUID]*Discount
	coupons   map[uuid.UUID]*Coupon
	links     map[string]map[uuid.UUID]uuid.UUID // table -> row id -> discount id
}

func newMemRepo() *memRepo {
	return &memRepo{
		discounts: map[uuid.UUID]*Discount{},
		coupons:   map[uuid.UUID]*Coupon{},
		links:     map[string]map[uuid.UUID]uuid.UUID{"products": {}, "categories": {}},
	}
}

func (m *memRepo) Create(_ context.Context, d *Discount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = uuid.New()
	cp := *d
	m.discounts[d.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, id uuid.UUID) (*Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.discounts[id]
	if !ok {
		return nil, ErrDiscountNotFound
	}
	cp := *d
	cp.ProductIDs, cp.CategoryIDs = nil, nil
	for row, did := range m.links["products"] {
		if did == id {
			cp.ProductIDs = append(cp.ProductIDs, row)
		}
	}
	for row, did := range m.links["categories"] {
		if did == id {
			cp.CategoryIDs = append(cp.CategoryIDs, row)
		}
	}
	for _, c := range m.coupons {
		if c.DiscountID == id {
			cc := *c
			cp.Coupon = &cc
		}
	}
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, f ListFilter) ([]Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Discount{}
	for _, d := range m.discounts {
		if f.Search != "" && !strings.Contains(strings.ToLower(d.Name+d.Description), strings.ToLower(f.Search)) {
			continue
		}
		if f.Active != nil && d.Active != *f.Active {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, d *Discount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.discounts[d.ID]; !ok {
		return ErrDiscountNotFound
	}
	cp := *d
	m.discounts[d.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.discounts[id]; !ok {
		return ErrDiscountNotFound
	}
	delete(m.discounts, id)
	for cid, c := range m.coupons {
		if c.DiscountID == id {
			delete(m.coupons, cid)
		}
	}
	return nil
}

func (m *memRepo) SetLinks(_ context.Context, table string, discountID uuid.UUID, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := map[uuid.UUID]bool{}
	for _, id := range ids {
		keep[id] = true
	}
	for row, did := range m.links[table] {
		if did == discountID && !keep[row] {
			delete(m.links[table], row)
		}
	}
	for _, id := range ids {
		m.links[table][id] = discountID
	}
	return nil
}

func (m *memRepo) CreateCoupon(_ context.Context, c *Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.coupons {
		if other.Code == c.Code {
			return apperr.Storage("unique constraint failed", "coupons_code_key", "coupons", nil)
		}
	}
	c.ID = uuid.New()
	cp := *c
	m.coupons[c.ID] = &cp
	return nil
}

func (m *memRepo) GetCoupon(_ context.Context, id uuid.UUID) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok {
		return nil, ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) GetCouponByCode(_ context.Context, code string, _ bool) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.coupons {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrCouponNotFound
}

func (m *memRepo) ListCoupons(_ context.Context, f CouponFilter) ([]Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Coupon{}
	for _, c := range m.coupons {
		if f.Search == "" || strings.Contains(c.Code, f.Search) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateCoupon(_ context.Context, c *Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.coupons[c.ID]
	if !ok {
		return ErrCouponNotFound
	}
	c.UsedTimes = old.UsedTimes
	cp := *c
	m.coupons[c.ID] = &cp
	return nil
}

func (m *memRepo) IncrementCouponUse(_ context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok {
		return 0, ErrCouponNotFound
	}
	c.UsedTimes++
	return c.UsedTimes, nil
}

// fakeSource is a product -> category chain with optional discounts.
type fakeSource struct {
	products   map[uuid.UUID]fakeNode
	categories map[uuid.UUID]fakeNode
}

type fakeNode struct {
	parent   *uuid.UUID
	discount *Discount
}

func (f *fakeSource) ProductDiscount(_ context.Context, id uuid.UUID) (*uuid.UUID, *Discount, error) {
	n, ok := f.products[id]
	if !ok {
		return nil, nil, ErrDiscountNotFound
	}
	return n.parent, n.discount, nil
}

func (f *fakeSource) CategoryDiscount(_ context.Context, id uuid.UUID) (*uuid.UUID, *Discount, error) {
	n, ok := f.categories[id]
	if !ok {
		return nil, nil, ErrDiscountNotFound
	}
	return n.parent, n.discount, nil
}

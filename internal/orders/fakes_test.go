package orders

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/carts"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/discounts"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/google/uuid"
)

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type memRepo struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]*Order
	payments map[uuid.UUID]*Payment
	history  map[uuid.UUID][]StatusEntry
	clock    time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:   map[uuid.UUID]*Order{},
		payments: map[uuid.UUID]*Payment{},
		history:  map[uuid.UUID][]StatusEntry{},
		clock:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memRepo) ByExternalID(_ context.Context, key string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range m.orders {
		if o.ExternalID != nil && *o.ExternalID == key {
			return id, nil
		}
	}
	return uuid.Nil, ErrOrderNotFound
}

func (m *memRepo) Insert(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.CreatedAt, o.UpdatedAt = m.clock, m.clock
	cp := *o
	cp.Items = append([]Item{}, o.Items...)
	addr, cost := *o.Address, *o.Cost
	cp.Address, cp.Cost = &addr, &cost
	m.orders[o.ID] = &cp
	return nil
}

func (m *memRepo) InsertPayment(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments[p.OrderID] = &cp
	return nil
}

func (m *memRepo) SetPaymentStatus(_ context.Context, orderID uuid.UUID, st PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[orderID]
	if !ok {
		return ErrPaymentNotFound
	}
	p.Status = st
	return nil
}

func (m *memRepo) AppendStatus(_ context.Context, orderID uuid.UUID, st Status, msg string) (*StatusEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Minute)
	e := StatusEntry{ID: uuid.New(), Status: st, Message: msg, CreatedAt: m.clock}
	m.history[orderID] = append(m.history[orderID], e)
	return &e, nil
}

func (m *memRepo) LockHistory(_ context.Context, orderID uuid.UUID) ([]StatusEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[orderID]; !ok {
		return nil, ErrOrderNotFound
	}
	return append([]StatusEntry{}, m.history[orderID]...), nil
}

func (m *memRepo) Get(_ context.Context, id uuid.UUID, inc Includes) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id, inc)
}

func (m *memRepo) get(id uuid.UUID, inc Includes) (*Order, error) {
	stored, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	o := Order{ID: stored.ID, ExternalID: stored.ExternalID, UserID: stored.UserID, CouponCode: stored.CouponCode,
		CreatedAt: stored.CreatedAt, UpdatedAt: stored.UpdatedAt}
	if h := m.history[id]; len(h) > 0 {
		o.Status = h[len(h)-1].Status
	}
	if inc.Items {
		o.Items = append([]Item{}, stored.Items...)
	}
	if inc.Address {
		o.Address = stored.Address
	}
	if inc.Cost {
		o.Cost = stored.Cost
	}
	if inc.Payment {
		if p, ok := m.payments[id]; ok {
			cp := *p
			o.Payment = &cp
		}
	}
	if inc.Statuses {
		o.Statuses = append([]StatusEntry{}, m.history[id]...)
	}
	return &o, nil
}

func (m *memRepo) List(_ context.Context, q ListQuery) ([]Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Order{}
	for id, o := range m.orders {
		if q.UserID != nil && (o.UserID == nil || *o.UserID != *q.UserID) {
			continue
		}
		got, _ := m.get(id, q.Includes)
		if q.Status != "" && got.Status != q.Status {
			continue
		}
		out = append(out, *got)
	}
	return out, len(out), nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return ErrOrderNotFound
	}
	delete(m.orders, id)
	delete(m.payments, id)
	delete(m.history, id)
	return nil
}

// store fakes carts, products, stock and coupons at once.
type store struct {
	mu       sync.Mutex
	carts    map[uuid.UUID][]carts.Item
	products map[uuid.UUID]*catalog.Product
	stock    map[uuid.UUID]*inventory.Inventory
	coupons  map[string]int64 // code -> flat reduction
	redeemed int
}

func newStore() *store {
	return &store{
		carts:    map[uuid.UUID][]carts.Item{},
		products: map[uuid.UUID]*catalog.Product{},
		stock:    map[uuid.UUID]*inventory.Inventory{},
		coupons:  map[string]int64{},
	}
}

func (s *store) variant(price, discounted int64, qty int) carts.ItemRef {
	p := &catalog.Product{ID: uuid.New(), Name: "Tee", Brand: "acme", Price: price, DiscountedPrice: discounted, Status: catalog.StatusActive}
	inv := &inventory.Inventory{ID: uuid.New(), ProductID: p.ID, Quantity: qty,
		Attributes: []inventory.Attribute{{ID: uuid.New(), Name: "size", Value: "M"}}}
	s.products[p.ID], s.stock[inv.ID] = p, inv
	return carts.ItemRef{ProductID: p.ID, InventoryID: inv.ID}
}

func (s *store) cart(lines map[carts.ItemRef]int) uuid.UUID {
	id := uuid.New()
	s.carts[id] = []carts.Item{}
	for ref, q := range lines {
		s.carts[id] = append(s.carts[id], carts.Item{ItemRef: ref, Quantity: q})
	}
	return id
}

func (s *store) qty(ref carts.ItemRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[ref.InventoryID].Quantity
}

func (s *store) Lines(_ context.Context, cartID uuid.UUID) ([]carts.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.carts[cartID]
	if !ok {
		return nil, carts.ErrCartNotFound
	}
	return append([]carts.Item{}, items...), nil
}

func (s *store) Replace(_ context.Context, cartID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, cartID)
	next := uuid.New()
	s.carts[next] = []carts.Item{}
	return next, nil
}

type productsOf struct{ *store }

func (p productsOf) Get(_ context.Context, id uuid.UUID, _ catalog.Includes) (*catalog.Product, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pr, ok := p.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	cp := *pr
	return &cp, nil
}

type stockOf struct{ *store }

func (s stockOf) Get(_ context.Context, id uuid.UUID) (*inventory.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.stock[id]
	if !ok {
		return nil, inventory.ErrInventoryNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s stockOf) Reserve(_ context.Context, lines []inventory.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lines {
		if s.stock[l.InventoryID].Quantity < l.Quantity {
			return inventory.ErrInsufficientStock
		}
	}
	for _, l := range lines {
		s.stock[l.InventoryID].Quantity -= l.Quantity
	}
	return nil
}

func (s stockOf) Restore(_ context.Context, lines []inventory.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lines {
		if inv, ok := s.stock[l.InventoryID]; ok {
			inv.Quantity += l.Quantity
		}
	}
	return nil
}

type couponsOf struct{ *store }

func (c couponsOf) Redeem(_ context.Context, code string, _ int64) (*discounts.Coupon, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	off, ok := c.coupons[code]
	if !ok {
		return nil, 0, discounts.ErrCouponNotFound
	}
	c.redeemed++
	return &discounts.Coupon{ID: uuid.New(), Code: code}, off, nil
}

type flatFee int64

func (f flatFee) Current(context.Context) (int64, error) { return int64(f), nil }

type recorder struct {
	mu     sync.Mutex
	topics []string
	events []Envelope
}

func (r *recorder) Publish(_ context.Context, topic string, ev Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.events = append(r.events, ev)
}

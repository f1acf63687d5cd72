package carts

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrCartNotFound         = apperr.NotFound("cart not found")
	ErrItemNotFound         = apperr.NotFound("cart item not found")
	ErrProductInactive      = apperr.Validation("product is not available")
	ErrVariantMismatch      = apperr.Validation("inventory does not belong to product")
	ErrInsufficientQuantity = apperr.Conflict("insufficient quantity")
	ErrQuantityBelowOne     = apperr.Validation("quantity must be at least 1")
	ErrSameCart             = apperr.Validation("cannot merge a cart into itself")
	ErrRefRequired          = apperr.Validation("product_id and inventory_id are required")
)

type Repository interface {
	Create(ctx context.Context, c *Cart) error
	Get(ctx context.Context, id uuid.UUID) (*Cart, error)
	Items(ctx context.Context, cartID uuid.UUID) ([]Item, error)
	PutItem(ctx context.Context, cartID uuid.UUID, ref ItemRef, quantity int) error
	RemoveItem(ctx context.Context, cartID uuid.UUID, ref ItemRef) error
	Clear(ctx context.Context, cartID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	Reassign(ctx context.Context, from, to uuid.UUID) error
}

type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Products is satisfied by catalog.ProductService.
type Products interface {
	Get(ctx context.Context, id uuid.UUID, inc catalog.Includes) (*catalog.Product, error)
}

// Stock is satisfied by inventory.Service.
type Stock interface {
	Get(ctx context.Context, id uuid.UUID) (*inventory.Inventory, error)
}

type Service struct {
	repo     Repository
	tx       UnitOfWork
	products Products
	stock    Stock
}

func NewService(repo Repository, tx UnitOfWork, products Products, stock Stock) *Service {
	return &Service{repo: repo, tx: tx, products: products, stock: stock}
}

func (s *Service) CreateEmpty(ctx context.Context) (*Cart, error) {
	c := &Cart{ID: uuid.New(), Items: []Item{}}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Create starts a new cart holding ref at quantity 1.
func (s *Service) Create(ctx context.Context, ref ItemRef) (*Cart, error) {
	var id uuid.UUID
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.checkLine(ctx, ref, 1); err != nil {
			return err
		}
		c := &Cart{ID: uuid.New()}
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
		id = c.ID
		return s.repo.PutItem(ctx, c.ID, ref, 1)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// AddItem increases an existing line by one or appends a new line.
func (s *Service) AddItem(ctx context.Context, cartID uuid.UUID, ref ItemRef) (*Cart, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		items, err := s.items(ctx, cartID)
		if err != nil {
			return err
		}
		q := 1
		if it, ok := find(items, ref); ok {
			q = it.Quantity + 1
		}
		if _, err := s.checkLine(ctx, ref, q); err != nil {
			return err
		}
		return s.repo.PutItem(ctx, cartID, ref, q)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, cartID)
}

func (s *Service) Increase(ctx context.Context, cartID uuid.UUID, ref ItemRef) (*Cart, error) {
	return s.adjust(ctx, cartID, ref, func(q int) int { return q + 1 })
}

func (s *Service) Decrease(ctx context.Context, cartID uuid.UUID, ref ItemRef) (*Cart, error) {
	return s.adjust(ctx, cartID, ref, func(q int) int { return q - 1 })
}

func (s *Service) UpdateQuantity(ctx context.Context, cartID uuid.UUID, ref ItemRef, quantity int) (*Cart, error) {
	return s.adjust(ctx, cartID, ref, func(int) int { return quantity })
}

func (s *Service) adjust(ctx context.Context, cartID uuid.UUID, ref ItemRef, next func(int) int) (*Cart, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		items, err := s.items(ctx, cartID)
		if err != nil {
			return err
		}
		it, ok := find(items, ref)
		if !ok {
			return ErrItemNotFound
		}
		q := next(it.Quantity)
		if q < 1 {
			return ErrQuantityBelowOne
		}
		if q > it.Quantity {
			// only growth is gated by stock
			if _, err := s.checkLine(ctx, ref, q); err != nil {
				return err
			}
		}
		return s.repo.PutItem(ctx, cartID, ref, q)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, cartID)
}

func (s *Service) RemoveItem(ctx context.Context, cartID uuid.UUID, ref ItemRef) (*Cart, error) {
	if err := s.repo.RemoveItem(ctx, cartID, ref); err != nil {
		return nil, err
	}
	return s.Get(ctx, cartID)
}

// Clear empties the cart but keeps its id.
func (s *Service) Clear(ctx context.Context, cartID uuid.UUID) (*Cart, error) {
	if err := s.repo.Clear(ctx, cartID); err != nil {
		return nil, err
	}
	return s.Get(ctx, cartID)
}

func (s *Service) Delete(ctx context.Context, cartID uuid.UUID) error {
	return s.repo.Delete(ctx, cartID)
}

// Get returns the cart with every line priced at the current discount.
func (s *Service) Get(ctx context.Context, cartID uuid.UUID) (*Cart, error) {
	c, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if c.Items, err = s.repo.Items(ctx, cartID); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range c.Items {
		it := &c.Items[i]
		g.Go(func() error {
			p, err := s.products.Get(gctx, it.ProductID, catalog.Includes{Images: true})
			if err != nil {
				return err
			}
			inv, err := s.stock.Get(gctx, it.InventoryID)
			if err != nil {
				return err
			}
			it.Product, it.Inventory = p, inv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, it := range c.Items {
		c.Total += it.Product.Price * int64(it.Quantity)
		c.DiscountedTotal += it.Product.DiscountedPrice * int64(it.Quantity)
	}
	return c, nil
}

// Lines returns the raw lines of a cart, for checkout.
func (s *Service) Lines(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	return s.items(ctx, cartID)
}

// Merge moves every line of from into to and deletes from. A line present
// in both carts ends up with the summed quantity, capped at the stock.
func (s *Service) Merge(ctx context.Context, from, to uuid.UUID) (*Cart, error) {
	if from == to {
		return nil, ErrSameCart
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		src, err := s.items(ctx, from)
		if err != nil {
			return err
		}
		dst, err := s.items(ctx, to)
		if err != nil {
			return err
		}
		for _, it := range src {
			q := it.Quantity
			if cur, ok := find(dst, it.ItemRef); ok {
				q += cur.Quantity
			}
			inv, err := s.stock.Get(ctx, it.InventoryID)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindNotFound {
					continue
				}
				return err
			}
			q = min(q, inv.Quantity)
			if q < 1 {
				continue
			}
			if err := s.repo.PutItem(ctx, to, it.ItemRef, q); err != nil {
				return err
			}
		}
		return s.repo.Delete(ctx, from)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"from": from, "to": to}).Info("cart merged")
	return s.Get(ctx, to)
}

// ResolveAtLogin decides which cart a user continues with after login.
// The cookie cart is adopted when the user has none, and merged into the
// user's cart otherwise. A stale cookie id is ignored.
func (s *Service) ResolveAtLogin(ctx context.Context, userCart, cookieCart *uuid.UUID) (uuid.UUID, error) {
	if cookieCart != nil {
		if _, err := s.repo.Get(ctx, *cookieCart); err != nil {
			if apperr.KindOf(err) != apperr.KindNotFound {
				return uuid.Nil, err
			}
			cookieCart = nil
		}
	}
	if userCart != nil {
		if _, err := s.repo.Get(ctx, *userCart); err != nil {
			if apperr.KindOf(err) != apperr.KindNotFound {
				return uuid.Nil, err
			}
			userCart = nil
		}
	}

	switch {
	case userCart != nil && cookieCart != nil && *userCart != *cookieCart:
		if _, err := s.Merge(ctx, *cookieCart, *userCart); err != nil {
			return uuid.Nil, err
		}
		return *userCart, nil
	case userCart != nil:
		return *userCart, nil
	case cookieCart != nil:
		return *cookieCart, nil
	}
	c, err := s.CreateEmpty(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return c.ID, nil
}

// Replace swaps a checked-out cart for a fresh empty one and moves its
// owner over. Meant to run inside the checkout transaction.
func (s *Service) Replace(ctx context.Context, cartID uuid.UUID) (uuid.UUID, error) {
	var next uuid.UUID
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.CreateEmpty(ctx)
		if err != nil {
			return err
		}
		next = c.ID
		if err := s.repo.Reassign(ctx, cartID, next); err != nil {
			return err
		}
		return s.repo.Delete(ctx, cartID)
	})
	return next, err
}

// checkLine validates that ref can be held at quantity q.
func (s *Service) checkLine(ctx context.Context, ref ItemRef, q int) (*inventory.Inventory, error) {
	if ref.ProductID == uuid.Nil || ref.InventoryID == uuid.Nil {
		return nil, ErrRefRequired
	}
	p, err := s.products.Get(ctx, ref.ProductID, catalog.Includes{})
	if err != nil {
		return nil, err
	}
	if p.Status != catalog.StatusActive {
		return nil, ErrProductInactive
	}
	inv, err := s.stock.Get(ctx, ref.InventoryID)
	if err != nil {
		return nil, err
	}
	if inv.ProductID != ref.ProductID {
		return nil, ErrVariantMismatch
	}
	if q > inv.Quantity {
		e := ErrInsufficientQuantity.WithOp("carts.checkLine")
		e.Details = map[string]string{"requested": itoa(q), "available": itoa(inv.Quantity)}
		return nil, e
	}
	return inv, nil
}

func (s *Service) items(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	if _, err := s.repo.Get(ctx, cartID); err != nil {
		return nil, err
	}
	return s.repo.Items(ctx, cartID)
}

func find(items []Item, ref ItemRef) (Item, bool) {
	for _, it := range items {
		if it.ItemRef == ref {
			return it, true
		}
	}
	return Item{}, false
}

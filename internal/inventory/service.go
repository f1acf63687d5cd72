package inventory

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrInventoryNotFound  = apperr.NotFound("inventory not found")
	ErrAttributeNotFound  = apperr.NotFound("attribute not found")
	ErrQuantityRequired   = apperr.Validation("quantity is required")
	ErrQuantityNegative   = apperr.Validation("quantity cannot be negative")
	ErrStepNotPositive    = apperr.Validation("quantity change must be greater than zero")
	ErrBelowZero          = apperr.Conflict("quantity cannot go below zero")
	ErrAttributeInvalid   = apperr.Validation("attribute name and value are required")
	ErrInsufficientStock  = apperr.Conflict("insufficient stock")
	ErrProductIDRequired  = apperr.Validation("product id is required")
)

type Repository interface {
	Create(ctx context.Context, inv *Inventory) error
	Get(ctx context.Context, id uuid.UUID) (*Inventory, error)
	ListByProducts(ctx context.Context, productIDs []uuid.UUID) ([]Inventory, error)
	SetQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	AddQuantity(ctx context.Context, id uuid.UUID, delta int) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddAttribute(ctx context.Context, inventoryID uuid.UUID, a *Attribute) error
	UpdateAttribute(ctx context.Context, inventoryID uuid.UUID, a *Attribute) error
	DeleteAttribute(ctx context.Context, inventoryID, attributeID uuid.UUID) error
	LockQuantities(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
}

type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	Repo Repository
	Tx   UnitOfWork
}

func NewService(repo Repository, tx UnitOfWork) *Service {
	return &Service{Repo: repo, Tx: tx}
}

// CreateEmpty adds a variant with quantity 0 and no attributes.
func (s *Service) CreateEmpty(ctx context.Context, productID uuid.UUID) (*Inventory, error) {
	return s.Create(ctx, productID, 0, nil)
}

func (s *Service) Create(ctx context.Context, productID uuid.UUID, quantity int, attrs []AttributeInput) (*Inventory, error) {
	if productID == uuid.Nil {
		return nil, ErrProductIDRequired
	}
	if quantity < 0 {
		return nil, ErrQuantityNegative
	}
	inv := &Inventory{ProductID: productID, Quantity: quantity, Attributes: []Attribute{}}
	for _, a := range attrs {
		attr, err := a.attribute()
		if err != nil {
			return nil, err
		}
		inv.Attributes = append(inv.Attributes, attr)
	}
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.Repo.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Inventory, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) ListByProducts(ctx context.Context, productIDs []uuid.UUID) ([]Inventory, error) {
	if len(productIDs) == 0 {
		return []Inventory{}, nil
	}
	return s.Repo.ListByProducts(ctx, productIDs)
}

// SetQuantity takes a pointer so an absent value can be told apart from 0.
func (s *Service) SetQuantity(ctx context.Context, id uuid.UUID, quantity *int) (*Inventory, error) {
	if quantity == nil {
		return nil, ErrQuantityRequired
	}
	if *quantity < 0 {
		return nil, ErrQuantityNegative
	}
	if err := s.Repo.SetQuantity(ctx, id, *quantity); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, id)
}

func (s *Service) Increase(ctx context.Context, id uuid.UUID, n int) (*Inventory, error) {
	if n <= 0 {
		return nil, ErrStepNotPositive
	}
	return s.adjust(ctx, id, n)
}

func (s *Service) Decrease(ctx context.Context, id uuid.UUID, n int) (*Inventory, error) {
	if n <= 0 {
		return nil, ErrStepNotPositive
	}
	return s.adjust(ctx, id, -n)
}

func (s *Service) adjust(ctx context.Context, id uuid.UUID, delta int) (*Inventory, error) {
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		qs, err := s.Repo.LockQuantities(ctx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		q, ok := qs[id]
		if !ok {
			return ErrInventoryNotFound
		}
		if q+delta < 0 {
			return ErrBelowZero
		}
		_, err = s.Repo.AddQuantity(ctx, id, delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, id)
}

// Clone copies quantity and attributes into a new variant of the same product.
func (s *Service) Clone(ctx context.Context, id uuid.UUID) (*Inventory, error) {
	var out *Inventory
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		src, err := s.Repo.Get(ctx, id)
		if err != nil {
			return err
		}
		cp := &Inventory{ProductID: src.ProductID, Quantity: src.Quantity, Attributes: make([]Attribute, 0, len(src.Attributes))}
		for _, a := range src.Attributes {
			cp.Attributes = append(cp.Attributes, Attribute{Name: a.Name, Value: a.Value})
		}
		if err := s.Repo.Create(ctx, cp); err != nil {
			return err
		}
		out = cp
		return nil
	})
	return out, err
}

func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	return s.Repo.Delete(ctx, id)
}

func (s *Service) AddAttribute(ctx context.Context, inventoryID uuid.UUID, in AttributeInput) (*Inventory, error) {
	a, err := in.attribute()
	if err != nil {
		return nil, err
	}
	if _, err := s.Repo.Get(ctx, inventoryID); err != nil {
		return nil, err
	}
	if err := s.Repo.AddAttribute(ctx, inventoryID, &a); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, inventoryID)
}

func (s *Service) UpdateAttribute(ctx context.Context, inventoryID, attributeID uuid.UUID, in AttributeInput) (*Inventory, error) {
	a, err := in.attribute()
	if err != nil {
		return nil, err
	}
	a.ID = attributeID
	if err := s.Repo.UpdateAttribute(ctx, inventoryID, &a); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, inventoryID)
}

func (s *Service) RemoveAttribute(ctx context.Context, inventoryID, attributeID uuid.UUID) (*Inventory, error) {
	if err := s.Repo.DeleteAttribute(ctx, inventoryID, attributeID); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, inventoryID)
}

// Reserve locks every variant in id order, checks all lines first and only
// then decrements. Must run inside the caller's transaction to be atomic
// with the rest of the order.
func (s *Service) Reserve(ctx context.Context, lines []Line) error {
	lines = mergeLines(lines)
	return s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		qs, err := s.Repo.LockQuantities(ctx, lineIDs(lines))
		if err != nil {
			return err
		}
		var short []Shortage
		for _, l := range lines {
			avail, ok := qs[l.InventoryID]
			if !ok {
				return ErrInventoryNotFound
			}
			if avail < l.Quantity {
				short = append(short, Shortage{InventoryID: l.InventoryID, Required: l.Quantity, Available: avail})
			}
		}
		if len(short) > 0 {
			return shortageError(short)
		}
		for _, l := range lines {
			if _, err := s.Repo.AddQuantity(ctx, l.InventoryID, -l.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

// Restore puts quantities back, e.g. when an order is cancelled or returned.
// Variants deleted since the order was placed are skipped.
func (s *Service) Restore(ctx context.Context, lines []Line) error {
	lines = mergeLines(lines)
	return s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		qs, err := s.Repo.LockQuantities(ctx, lineIDs(lines))
		if err != nil {
			return err
		}
		for _, l := range lines {
			if _, ok := qs[l.InventoryID]; !ok {
				log.WithField("inventory_id", l.InventoryID).Warn("restore skipped: variant no longer exists")
				continue
			}
			if _, err := s.Repo.AddQuantity(ctx, l.InventoryID, l.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

// Available returns the current quantity of one variant without locking.
func (s *Service) Available(ctx context.Context, id uuid.UUID) (int, error) {
	inv, err := s.Repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return inv.Quantity, nil
}

func (in AttributeInput) attribute() (Attribute, error) {
	name, value := strings.TrimSpace(in.Name), strings.TrimSpace(in.Value)
	if name == "" || value == "" {
		return Attribute{}, ErrAttributeInvalid
	}
	return Attribute{Name: name, Value: value}, nil
}

// mergeLines sums duplicate variants and sorts by id so locks are taken
// in the same order everywhere.
func mergeLines(lines []Line) []Line {
	sum := map[uuid.UUID]int{}
	for _, l := range lines {
		sum[l.InventoryID] += l.Quantity
	}
	out := make([]Line, 0, len(sum))
	for id, q := range sum {
		out = append(out, Line{InventoryID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InventoryID.String() < out[j].InventoryID.String() })
	return out
}

func lineIDs(lines []Line) []uuid.UUID {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.InventoryID
	}
	return ids
}

func shortageError(short []Shortage) error {
	e := ErrInsufficientStock.WithOp("inventory.Reserve")
	e.Details = map[string]string{}
	for _, s := range short {
		e.Details[s.InventoryID.String()] = "required " + strconv.Itoa(s.Required) + ", available " + strconv.Itoa(s.Available)
	}
	return e
}

package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type memRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Inventory
}

func newMemRepo() *memRepo { return &memRepo{items: map[uuid.UUID]*Inventory{}} }

func (m *memRepo) Create(_ context.Context, inv *Inventory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv.ID = uuid.New()
	for i := range inv.Attributes {
		inv.Attributes[i].ID = uuid.New()
	}
	cp := *inv
	cp.Attributes = append([]Attribute{}, inv.Attributes...)
	m.items[inv.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, id uuid.UUID) (*Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[id]
	if !ok {
		return nil, ErrInventoryNotFound
	}
	cp := *inv
	cp.Attributes = append([]Attribute{}, inv.Attributes...)
	return &cp, nil
}

func (m *memRepo) ListByProducts(_ context.Context, productIDs []uuid.UUID) ([]Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Inventory
	for _, inv := range m.items {
		for _, p := range productIDs {
			if inv.ProductID == p {
				out = append(out, *inv)
			}
		}
	}
	return out, nil
}

func (m *memRepo) SetQuantity(_ context.Context, id uuid.UUID, q int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[id]
	if !ok {
		return ErrInventoryNotFound
	}
	inv.Quantity = q
	return nil
}

func (m *memRepo) AddQuantity(_ context.Context, id uuid.UUID, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[id]
	if !ok {
		return 0, ErrInventoryNotFound
	}
	if inv.Quantity+delta < 0 {
		return 0, apperr.Storage("check constraint failed", "inventories_quantity_check", "inventories", nil)
	}
	inv.Quantity += delta
	return inv.Quantity, nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrInventoryNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memRepo) AddAttribute(_ context.Context, invID uuid.UUID, a *Attribute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	m.items[invID].Attributes = append(m.items[invID].Attributes, *a)
	return nil
}

func (m *memRepo) UpdateAttribute(_ context.Context, invID uuid.UUID, a *Attribute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[invID]
	if !ok {
		return ErrAttributeNotFound
	}
	for i := range inv.Attributes {
		if inv.Attributes[i].ID == a.ID {
			inv.Attributes[i] = *a
			return nil
		}
	}
	return ErrAttributeNotFound
}

func (m *memRepo) DeleteAttribute(_ context.Context, invID, attrID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[invID]
	if !ok {
		return ErrAttributeNotFound
	}
	for i := range inv.Attributes {
		if inv.Attributes[i].ID == attrID {
			inv.Attributes = append(inv.Attributes[:i], inv.Attributes[i+1:]...)
			return nil
		}
	}
	return ErrAttributeNotFound
}

func (m *memRepo) LockQuantities(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[uuid.UUID]int{}
	for _, id := range ids {
		if inv, ok := m.items[id]; ok {
			out[id] = inv.Quantity
		}
	}
	return out, nil
}

func intp(v int) *int { return &v }

func TestCreateEmptyAndSetQuantity(t *testing.T) {
	ctx := context.Background()
	s := NewService(newMemRepo(), noTx{})

	inv, err := s.CreateEmpty(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, inv.Quantity)
	assert.Empty(t, inv.Attributes)

	got, err := s.SetQuantity(ctx, inv.ID, intp(7))
	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity)

	got, err = s.SetQuantity(ctx, inv.ID, intp(0))
	require.NoError(t, err, "zero is a valid explicit quantity")
	assert.Equal(t, 0, got.Quantity)

	_, err = s.SetQuantity(ctx, inv.ID, nil)
	assert.ErrorIs(t, err, ErrQuantityRequired)

	_, err = s.SetQuantity(ctx, inv.ID, intp(-1))
	assert.ErrorIs(t, err, ErrQuantityNegative)
}

func TestIncreaseDecrease(t *testing.T) {
	ctx := context.Background()
	s := NewService(newMemRepo(), noTx{})
	inv, err := s.Create(ctx, uuid.New(), 3, nil)
	require.NoError(t, err)

	got, err := s.Increase(ctx, inv.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	got, err = s.Decrease(ctx, inv.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)

	_, err = s.Decrease(ctx, inv.ID, 1)
	assert.ErrorIs(t, err, ErrBelowZero)

	_, err = s.Increase(ctx, inv.ID, 0)
	assert.ErrorIs(t, err, ErrStepNotPositive)

	_, err = s.Decrease(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrInventoryNotFound)
}

func TestCloneCopiesQuantityAndAttributes(t *testing.T) {
	ctx := context.Background()
	s := NewService(newMemRepo(), noTx{})
	productID := uuid.New()
	src, err := s.Create(ctx, productID, 4, []AttributeInput{{Name: "size", Value: "M"}, {Name: "color", Value: "red"}})
	require.NoError(t, err)

	cp, err := s.Clone(ctx, src.ID)
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, cp.ID)
	assert.Equal(t, productID, cp.ProductID)
	assert.Equal(t, 4, cp.Quantity)
	require.Len(t, cp.Attributes, 2)
	assert.NotEqual(t, src.Attributes[0].ID, cp.Attributes[0].ID)
	assert.Equal(t, "M", cp.Attributes[0].Value)
}

func TestAttributes(t *testing.T) {
	ctx := context.Background()
	s := NewService(newMemRepo(), noTx{})
	inv, err := s.CreateEmpty(ctx, uuid.New())
	require.NoError(t, err)

	inv, err = s.AddAttribute(ctx, inv.ID, AttributeInput{Name: "size", Value: "L"})
	require.NoError(t, err)
	require.Len(t, inv.Attributes, 1)
	attrID := inv.Attributes[0].ID

	inv, err = s.UpdateAttribute(ctx, inv.ID, attrID, AttributeInput{Name: "size", Value: "XL"})
	require.NoError(t, err)
	assert.Equal(t, "XL", inv.Attributes[0].Value)

	_, err = s.AddAttribute(ctx, inv.ID, AttributeInput{Name: "size"})
	assert.ErrorIs(t, err, ErrAttributeInvalid)

	inv, err = s.RemoveAttribute(ctx, inv.ID, attrID)
	require.NoError(t, err)
	assert.Empty(t, inv.Attributes)

	_, err = s.RemoveAttribute(ctx, inv.ID, attrID)
	assert.ErrorIs(t, err, ErrAttributeNotFound)
}

func TestReserveAndRestore(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	s := NewService(repo, noTx{})
	a, err := s.Create(ctx, uuid.New(), 5, nil)
	require.NoError(t, err)
	b, err := s.Create(ctx, uuid.New(), 1, nil)
	require.NoError(t, err)

	t.Run("all or nothing", func(t *testing.T) {
		err := s.Reserve(ctx, []Line{{a.ID, 2}, {b.ID, 3}})
		require.ErrorIs(t, err, ErrInsufficientStock)
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, "required 3, available 1", e.Details[b.ID.String()])

		q, _ := s.Available(ctx, a.ID)
		assert.Equal(t, 5, q, "a untouched when b is short")
	})

	t.Run("duplicate lines are summed", func(t *testing.T) {
		require.NoError(t, s.Reserve(ctx, []Line{{a.ID, 2}, {a.ID, 1}, {b.ID, 1}}))
		q, _ := s.Available(ctx, a.ID)
		assert.Equal(t, 2, q)
		q, _ = s.Available(ctx, b.ID)
		assert.Equal(t, 0, q)
	})

	t.Run("restore puts quantities back", func(t *testing.T) {
		require.NoError(t, s.Restore(ctx, []Line{{a.ID, 3}, {b.ID, 1}, {uuid.New(), 9}}))
		q, _ := s.Available(ctx, a.ID)
		assert.Equal(t, 5, q)
		q, _ = s.Available(ctx, b.ID)
		assert.Equal(t, 1, q)
	})

	t.Run("unknown variant", func(t *testing.T) {
		assert.ErrorIs(t, s.Reserve(ctx, []Line{{uuid.New(), 1}}), ErrInventoryNotFound)
	})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := NewService(newMemRepo(), noTx{})
	inv, err := s.CreateEmpty(ctx, uuid.New())
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, inv.ID))
	_, err = s.Get(ctx, inv.ID)
	assert.ErrorIs(t, err, ErrInventoryNotFound)
}

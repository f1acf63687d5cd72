package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memShipping struct{ c *ShippingCharge }

func (m *memShipping) Get(context.Context) (*ShippingCharge, error) {
	if m.c == nil {
		return nil, ErrShippingNotFound
	}
	cp := *m.c
	return &cp, nil
}

func (m *memShipping) Create(_ context.Context, c *ShippingCharge) error {
	cp := *c
	m.c = &cp
	return nil
}

func (m *memShipping) Update(_ context.Context, c *ShippingCharge) error {
	if m.c == nil || m.c.ID != c.ID {
		return ErrShippingNotFound
	}
	m.c.Charge = c.Charge
	return nil
}

func (m *memShipping) Delete(_ context.Context, id uuid.UUID) error {
	if m.c == nil || m.c.ID != id {
		return ErrShippingNotFound
	}
	m.c = nil
	return nil
}

func TestShippingCharge(t *testing.T) {
	s := NewShippingService(&memShipping{})
	ctx := context.Background()

	fee, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Zero(t, fee, "no charge configured")

	_, err = s.Create(ctx, -5)
	assert.ErrorIs(t, err, ErrChargeNegative)

	c, err := s.Create(ctx, 60)
	require.NoError(t, err)
	_, err = s.Create(ctx, 80)
	assert.ErrorIs(t, err, ErrShippingExists)

	_, err = s.Update(ctx, c.ID, 75)
	require.NoError(t, err)
	fee, err = s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(75), fee)

	_, err = s.Update(ctx, uuid.New(), 10)
	assert.ErrorIs(t, err, ErrShippingNotFound)

	require.NoError(t, s.Delete(ctx, c.ID))
	_, err = s.Get(ctx)
	assert.ErrorIs(t, err, ErrShippingNotFound)
}

package postgres

import (
	"errors"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, Translate(nil, "order"))
	})

	t.Run("no rows", func(t *testing.T) {
		err := Translate(pgx.ErrNoRows, "order")
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		assert.EqualError(t, err, "order not found")
	})

	t.Run("unique violation keeps constraint and table", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "coupons_code_key", TableName: "coupons"}
		err := Translate(pgErr, "coupon")

		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindStorage, e.Kind)
		assert.Equal(t, "coupons_code_key", e.Details["constraint"])
		assert.Equal(t, "coupons", e.Details["modelName"])
		assert.True(t, IsUniqueViolation(err))
	})

	t.Run("app errors pass through", func(t *testing.T) {
		in := apperr.Conflict("already shipped")
		assert.Same(t, in, Translate(in, "order"))
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		cause := errors.New("conn reset")
		err := Translate(cause, "cart")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})
}

package carts

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"strconv"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, c *Cart) error {
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`INSERT INTO carts(id) VALUES ($1) RETURNING created_at, updated_at`, c.ID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return postgres.Translate(err, "cart")
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*Cart, error) {
	c := Cart{ID: id}
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT created_at, updated_at FROM carts WHERE id=$1`, id,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, postgres.Translate(err, "cart")
	}
	return &c, nil
}

func (r *Repo) Items(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx, `
		SELECT product_id, inventory_id, quantity, created_at FROM cart_items
		WHERE cart_id=$1 ORDER BY created_at, product_id, inventory_id`, cartID)
	if err != nil {
		return nil, postgres.Translate(err, "cart item")
	}
	defer rows.Close()
	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.InventoryID, &it.Quantity, &it.CreatedAt); err != nil {
			return nil, postgres.Translate(err, "cart item")
		}
		out = append(out, it)
	}
	return out, postgres.Translate(rows.Err(), "cart item")
}

// PutItem inserts the line or overwrites its quantity.
func (r *Repo) PutItem(ctx context.Context, cartID uuid.UUID, ref ItemRef, quantity int) error {
	db := postgres.Conn(ctx, r.DB)
	_, err := db.Exec(ctx, `
		INSERT INTO cart_items(cart_id, product_id, inventory_id, quantity) VALUES ($1,$2,$3,$4)
		ON CONFLICT (cart_id, product_id, inventory_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		cartID, ref.ProductID, ref.InventoryID, quantity)
	if err != nil {
		return postgres.Translate(err, "cart item")
	}
	return r.touch(ctx, cartID)
}

func (r *Repo) RemoveItem(ctx context.Context, cartID uuid.UUID, ref ItemRef) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2 AND inventory_id=$3`,
		cartID, ref.ProductID, ref.InventoryID)
	if err != nil {
		return postgres.Translate(err, "cart item")
	}
	if ct.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return r.touch(ctx, cartID)
}

func (r *Repo) Clear(ctx context.Context, cartID uuid.UUID) error {
	_, err := postgres.Conn(ctx, r.DB).Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID)
	if err != nil {
		return postgres.Translate(err, "cart item")
	}
	return r.touch(ctx, cartID)
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx, `DELETE FROM carts WHERE id=$1`, id)
	if err != nil {
		return postgres.Translate(err, "cart")
	}
	if ct.RowsAffected() == 0 {
		return ErrCartNotFound
	}
	return nil
}

// Reassign points every user that owned from at to.
func (r *Repo) Reassign(ctx context.Context, from, to uuid.UUID) error {
	_, err := postgres.Conn(ctx, r.DB).Exec(ctx,
		`UPDATE users SET cart_id=$2, updated_at=now() WHERE cart_id=$1`, from, to)
	return postgres.Translate(err, "user")
}

func (r *Repo) touch(ctx context.Context, cartID uuid.UUID) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx, `UPDATE carts SET updated_at=now() WHERE id=$1`, cartID)
	if err != nil {
		return postgres.Translate(err, "cart")
	}
	if ct.RowsAffected() == 0 {
		return ErrCartNotFound
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }

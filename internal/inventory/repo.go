package inventory

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, inv *Inventory) error {
	inv.ID = uuid.New()
	db := postgres.Conn(ctx, r.DB)
	err := db.QueryRow(ctx, `
		INSERT INTO inventories(id, product_id, quantity) VALUES ($1,$2,$3)
		RETURNING created_at, updated_at`, inv.ID, inv.ProductID, inv.Quantity,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return postgres.Translate(err, "inventory")
	}
	for i := range inv.Attributes {
		if err := r.AddAttribute(ctx, inv.ID, &inv.Attributes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*Inventory, error) {
	var inv Inventory
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		SELECT id, product_id, quantity, created_at, updated_at FROM inventories WHERE id=$1`, id,
	).Scan(&inv.ID, &inv.ProductID, &inv.Quantity, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, postgres.Translate(err, "inventory")
	}
	attrs, err := r.attributes(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	inv.Attributes = attrs[id]
	if inv.Attributes == nil {
		inv.Attributes = []Attribute{}
	}
	return &inv, nil
}

func (r *Repo) ListByProducts(ctx context.Context, productIDs []uuid.UUID) ([]Inventory, error) {
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx, `
		SELECT id, product_id, quantity, created_at, updated_at FROM inventories
		WHERE product_id = ANY($1::uuid[]) ORDER BY created_at, id`, idStrings(productIDs))
	if err != nil {
		return nil, postgres.Translate(err, "inventory")
	}
	defer rows.Close()

	var out []Inventory
	var ids []uuid.UUID
	for rows.Next() {
		var inv Inventory
		if err := rows.Scan(&inv.ID, &inv.ProductID, &inv.Quantity, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, postgres.Translate(err, "inventory")
		}
		out = append(out, inv)
		ids = append(ids, inv.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Translate(err, "inventory")
	}

	attrs, err := r.attributes(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Attributes = attrs[out[i].ID]
		if out[i].Attributes == nil {
			out[i].Attributes = []Attribute{}
		}
	}
	return out, nil
}

func (r *Repo) attributes(ctx context.Context, inventoryIDs []uuid.UUID) (map[uuid.UUID][]Attribute, error) {
	out := map[uuid.UUID][]Attribute{}
	if len(inventoryIDs) == 0 {
		return out, nil
	}
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx, `
		SELECT inventory_id, id, name, value FROM attributes
		WHERE inventory_id = ANY($1::uuid[]) ORDER BY name, id`, idStrings(inventoryIDs))
	if err != nil {
		return nil, postgres.Translate(err, "attribute")
	}
	defer rows.Close()
	for rows.Next() {
		var invID uuid.UUID
		var a Attribute
		if err := rows.Scan(&invID, &a.ID, &a.Name, &a.Value); err != nil {
			return nil, postgres.Translate(err, "attribute")
		}
		out[invID] = append(out[invID], a)
	}
	return out, postgres.Translate(rows.Err(), "attribute")
}

func (r *Repo) SetQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx,
		`UPDATE inventories SET quantity=$2, updated_at=now() WHERE id=$1`, id, quantity)
	if err != nil {
		return postgres.Translate(err, "inventory")
	}
	if ct.RowsAffected() == 0 {
		return ErrInventoryNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx, `DELETE FROM inventories WHERE id=$1`, id)
	if err != nil {
		return postgres.Translate(err, "inventory")
	}
	if ct.RowsAffected() == 0 {
		return ErrInventoryNotFound
	}
	return nil
}

func (r *Repo) AddAttribute(ctx context.Context, inventoryID uuid.UUID, a *Attribute) error {
	a.ID = uuid.New()
	_, err := postgres.Conn(ctx, r.DB).Exec(ctx,
		`INSERT INTO attributes(id, inventory_id, name, value) VALUES ($1,$2,$3,$4)`,
		a.ID, inventoryID, a.Name, a.Value)
	return postgres.Translate(err, "attribute")
}

func (r *Repo) UpdateAttribute(ctx context.Context, inventoryID uuid.UUID, a *Attribute) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx,
		`UPDATE attributes SET name=$3, value=$4 WHERE id=$1 AND inventory_id=$2`,
		a.ID, inventoryID, a.Name, a.Value)
	if err != nil {
		return postgres.Translate(err, "attribute")
	}
	if ct.RowsAffected() == 0 {
		return ErrAttributeNotFound
	}
	return nil
}

func (r *Repo) DeleteAttribute(ctx context.Context, inventoryID, attributeID uuid.UUID) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx,
		`DELETE FROM attributes WHERE id=$1 AND inventory_id=$2`, attributeID, inventoryID)
	if err != nil {
		return postgres.Translate(err, "attribute")
	}
	if ct.RowsAffected() == 0 {
		return ErrAttributeNotFound
	}
	return nil
}

// LockQuantities locks the rows FOR UPDATE in id order and returns their
// quantities. Unknown ids are simply absent from the result.
func (r *Repo) LockQuantities(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx, `
		SELECT id, quantity FROM inventories
		WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`, idStrings(ids))
	if err != nil {
		return nil, postgres.Translate(err, "inventory")
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var q int
		if err := rows.Scan(&id, &q); err != nil {
			return nil, postgres.Translate(err, "inventory")
		}
		out[id] = q
	}
	return out, postgres.Translate(rows.Err(), "inventory")
}

// AddQuantity applies delta; the CHECK constraint keeps quantity >= 0.
func (r *Repo) AddQuantity(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var q int
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`UPDATE inventories SET quantity = quantity + $2, updated_at = now() WHERE id=$1 RETURNING quantity`,
		id, delta).Scan(&q)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInventoryNotFound
	}
	return q, postgres.Translate(err, "inventory")
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

package catalog

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"strconv"
)

type CategoryRepo struct{ DB *pgxpool.Pool }

const categoryCols = `id, name, parent_id, discount_id, banner_url, banner_key, icon_url, icon_key, created_at, updated_at`

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.ParentID, &c.DiscountID, &c.BannerURL, &c.BannerKey,
		&c.IconURL, &c.IconKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepo) Create(ctx context.Context, c *Category) error {
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		INSERT INTO categories(id, name, parent_id, banner_url, banner_key, icon_url, icon_key)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING created_at, updated_at`,
		c.ID, c.Name, c.ParentID, c.BannerURL, c.BannerKey, c.IconURL, c.IconKey,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return postgres.Translate(err, "category")
}

func (r *CategoryRepo) Get(ctx context.Context, id uuid.UUID) (*Category, error) {
	c, err := scanCategory(postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+categoryCols+` FROM categories WHERE id=$1`, id))
	if err != nil {
		return nil, postgres.Translate(err, "category")
	}
	return c, nil
}

func (r *CategoryRepo) All(ctx context.Context) ([]Category, error) {
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx,
		`SELECT `+categoryCols+` FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, postgres.Translate(err, "category")
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, postgres.Translate(err, "category")
		}
		out = append(out, *c)
	}
	return out, postgres.Translate(rows.Err(), "category")
}

func (r *CategoryRepo) Update(ctx context.Context, c *Category) error {
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		UPDATE categories SET name=$2, parent_id=$3, banner_url=$4, banner_key=$5,
			icon_url=$6, icon_key=$7, updated_at=now()
		WHERE id=$1 RETURNING updated_at`,
		c.ID, c.Name, c.ParentID, c.BannerURL, c.BannerKey, c.IconURL, c.IconKey,
	).Scan(&c.UpdatedAt)
	return postgres.Translate(err, "category")
}

func (r *CategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return postgres.Translate(err, "category")
	}
	if ct.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepo) Dependents(ctx context.Context, id uuid.UUID) (int, int, error) {
	var products, children int
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		SELECT (SELECT count(*) FROM products WHERE category_id=$1),
		       (SELECT count(*) FROM categories WHERE parent_id=$1)`, id,
	).Scan(&products, &children)
	return products, children, postgres.Translate(err, "category")
}

func itoa(n int) string { return strconv.Itoa(n) }

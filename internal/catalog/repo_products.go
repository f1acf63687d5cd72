package catalog

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"strconv"
	"strings"
)

type ProductRepo struct{ DB *pgxpool.Pool }

const productCols = `p.id, p.name, p.slug, p.description, p.brand, p.model, p.tags, p.price,
	p.status, p.category_id, p.created_at, p.updated_at`

var productSorts = map[string]string{
	"name":       "p.name",
	"price":      "p.price",
	"created_at": "p.created_at",
}

func scanProduct(row pgx.Row, extra ...any) (*Product, error) {
	var p Product
	dest := append([]any{&p.ID, &p.Name, &p.Slug, &p.Description, &p.Brand, &p.Model, &p.Tags, &p.Price,
		&p.Status, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func (r *ProductRepo) Create(ctx context.Context, p *Product) error {
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		INSERT INTO products(id, name, slug, description, brand, model, tags, price, status, category_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Slug, p.Description, p.Brand, p.Model, p.Tags, p.Price, p.Status, p.CategoryID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return postgres.Translate(err, "product")
}

func (r *ProductRepo) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := scanProduct(postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+productCols+` FROM products p WHERE p.id=$1`, id))
	if err != nil {
		return nil, postgres.Translate(err, "product")
	}
	return p, nil
}

// List filters by category include the whole subtree below it.
func (r *ProductRepo) List(ctx context.Context, q ListQuery) ([]Product, int, error) {
	var (
		with  string
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if q.CategoryID != nil {
		with = `WITH RECURSIVE sub AS (
			SELECT id FROM categories WHERE id = ` + arg(*q.CategoryID) + `
			UNION ALL
			SELECT c.id FROM categories c JOIN sub ON c.parent_id = sub.id
		) `
		where = append(where, "p.category_id IN (SELECT id FROM sub)")
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		n := arg("%" + s + "%")
		where = append(where, "(p.name ILIKE "+n+" OR p.description ILIKE "+n+" OR "+arg(strings.ToLower(s))+" = ANY(p.tags))")
	}
	if b := strings.TrimSpace(q.Brand); b != "" {
		where = append(where, "p.brand = "+arg(strings.ToLower(b)))
	}
	if q.Status != "" {
		where = append(where, "p.status = "+arg(q.Status))
	}

	sql := with + `SELECT ` + productCols + `, count(*) OVER() FROM products p`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	order, ok := productSorts[q.SortBy]
	if !ok {
		order = "p.created_at"
	}
	dir := " ASC"
	if q.SortDesc {
		dir = " DESC"
	}
	sql += " ORDER BY " + order + dir + ", p.id LIMIT " + arg(q.Limit) + " OFFSET " + arg((q.Page-1)*q.Limit)

	rows, err := postgres.Conn(ctx, r.DB).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, postgres.Translate(err, "product")
	}
	defer rows.Close()

	out := []Product{}
	total := 0
	for rows.Next() {
		p, err := scanProduct(rows, &total)
		if err != nil {
			return nil, 0, postgres.Translate(err, "product")
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, postgres.Translate(err, "product")
	}
	if len(out) == 0 && q.Page > 1 {
		// halaman di luar jangkauan: total tetap dihitung
		err = postgres.Conn(ctx, r.DB).QueryRow(ctx, countSQL(with, where), args[:len(args)-2]...).Scan(&total)
		if err != nil {
			return nil, 0, postgres.Translate(err, "product")
		}
	}
	return out, total, nil
}

func countSQL(with string, where []string) string {
	sql := with + `SELECT count(*) FROM products p`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	return sql
}

func (r *ProductRepo) Update(ctx context.Context, p *Product) error {
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		UPDATE products SET name=$2, slug=$3, description=$4, brand=$5, model=$6, tags=$7,
			price=$8, status=$9, category_id=$10, updated_at=now()
		WHERE id=$1 RETURNING updated_at`,
		p.ID, p.Name, p.Slug, p.Description, p.Brand, p.Model, p.Tags, p.Price, p.Status, p.CategoryID,
	).Scan(&p.UpdatedAt)
	return postgres.Translate(err, "product")
}

func (r *ProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return postgres.Translate(err, "product")
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *ProductRepo) AddImages(ctx context.Context, imgs []Image) error {
	db := postgres.Conn(ctx, r.DB)
	for i := range imgs {
		err := db.QueryRow(ctx, `
			INSERT INTO product_images(id, product_id, url, storage_key) VALUES ($1,$2,$3,$4)
			RETURNING created_at`, imgs[i].ID, imgs[i].ProductID, imgs[i].URL, imgs[i].Key,
		).Scan(&imgs[i].CreatedAt)
		if err != nil {
			return postgres.Translate(err, "image")
		}
	}
	return nil
}

func (r *ProductRepo) Images(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]Image, error) {
	out := map[uuid.UUID][]Image{}
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx, `
		SELECT id, product_id, url, storage_key, created_at FROM product_images
		WHERE product_id = ANY($1::uuid[]) ORDER BY created_at, id`, idStrings(productIDs))
	if err != nil {
		return nil, postgres.Translate(err, "image")
	}
	defer rows.Close()
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.Key, &img.CreatedAt); err != nil {
			return nil, postgres.Translate(err, "image")
		}
		out[img.ProductID] = append(out[img.ProductID], img)
	}
	return out, postgres.Translate(rows.Err(), "image")
}

func (r *ProductRepo) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) (*Image, error) {
	var img Image
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		DELETE FROM product_images WHERE id=$1 AND product_id=$2
		RETURNING id, product_id, url, storage_key, created_at`, imageID, productID,
	).Scan(&img.ID, &img.ProductID, &img.URL, &img.Key, &img.CreatedAt)
	if err != nil {
		return nil, postgres.Translate(err, "image")
	}
	return &img, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

package discounts

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"strconv"
	"strings"
)

type Repo struct{ DB *pgxpool.Pool }

const discountCols = `d.id, d.name, d.description, d.percentage, d.amount, d.upto_limit,
	d.minimum_order_amount, d.start_date, d.end_date, d.active, d.sub_discount, d.brands,
	d.created_at, d.updated_at`

const couponCols = `c.id, c.code, c.discount_id, c.active, c.usage_limit, c.used_times, c.created_at, c.updated_at`

func scanDiscount(row pgx.Row) (*Discount, error) {
	var d Discount
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Percentage, &d.Amount, &d.UptoLimit,
		&d.MinimumOrderAmount, &d.StartDate, &d.EndDate, &d.Active, &d.SubDiscount, &d.Brands,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanCoupon(row pgx.Row) (*Coupon, error) {
	var c Coupon
	if err := row.Scan(&c.ID, &c.Code, &c.DiscountID, &c.Active, &c.Limit, &c.UsedTimes, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) Create(ctx context.Context, d *Discount) error {
	d.ID = uuid.New()
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		INSERT INTO discounts(id, name, description, percentage, amount, upto_limit,
			minimum_order_amount, start_date, end_date, active, sub_discount, brands)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Description, d.Percentage, d.Amount, d.UptoLimit,
		d.MinimumOrderAmount, d.StartDate, d.EndDate, d.Active, d.SubDiscount, d.Brands,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return postgres.Translate(err, "discount")
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*Discount, error) {
	db := postgres.Conn(ctx, r.DB)
	d, err := scanDiscount(db.QueryRow(ctx, `SELECT `+discountCols+` FROM discounts d WHERE d.id=$1`, id))
	if err != nil {
		return nil, postgres.Translate(err, "discount")
	}
	if d.ProductIDs, err = r.linkedIDs(ctx, "products", id); err != nil {
		return nil, err
	}
	if d.CategoryIDs, err = r.linkedIDs(ctx, "categories", id); err != nil {
		return nil, err
	}
	c, err := scanCoupon(db.QueryRow(ctx, `SELECT `+couponCols+` FROM coupons c WHERE c.discount_id=$1`, id))
	switch {
	case err == nil:
		d.Coupon = c
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, postgres.Translate(err, "coupon")
	}
	return d, nil
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Discount, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, "(d.name ILIKE "+p+" OR d.description ILIKE "+p+")")
	}
	if f.Active != nil {
		where = append(where, "d.active = "+arg(*f.Active))
	}
	if f.Brand != "" {
		where = append(where, arg(strings.ToLower(f.Brand))+" = ANY(d.brands)")
	}
	// kupon punya endpoint sendiri
	where = append(where, "NOT EXISTS (SELECT 1 FROM coupons c WHERE c.discount_id = d.id)")

	rows, err := postgres.Conn(ctx, r.DB).Query(ctx,
		`SELECT `+discountCols+` FROM discounts d WHERE `+strings.Join(where, " AND ")+` ORDER BY d.created_at DESC`, args...)
	if err != nil {
		return nil, postgres.Translate(err, "discount")
	}
	defer rows.Close()

	out := []Discount{}
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, postgres.Translate(err, "discount")
		}
		out = append(out, *d)
	}
	return out, postgres.Translate(rows.Err(), "discount")
}

func (r *Repo) Update(ctx context.Context, d *Discount) error {
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		UPDATE discounts SET name=$2, description=$3, percentage=$4, amount=$5, upto_limit=$6,
			minimum_order_amount=$7, start_date=$8, end_date=$9, active=$10, sub_discount=$11,
			brands=$12, updated_at=now()
		WHERE id=$1
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Description, d.Percentage, d.Amount, d.UptoLimit,
		d.MinimumOrderAmount, d.StartDate, d.EndDate, d.Active, d.SubDiscount, d.Brands,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return postgres.Translate(err, "discount")
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx, `DELETE FROM discounts WHERE id=$1`, id)
	if err != nil {
		return postgres.Translate(err, "discount")
	}
	if ct.RowsAffected() == 0 {
		return ErrDiscountNotFound
	}
	return nil
}

// SetLinks makes ids the exact set of rows in table pointing at the discount:
// rows no longer listed are detached, new ones attached.
func (r *Repo) SetLinks(ctx context.Context, table string, discountID uuid.UUID, ids []uuid.UUID) error {
	if table != "products" && table != "categories" {
		return postgres.Translate(errUnknownTable(table), "discount")
	}
	db := postgres.Conn(ctx, r.DB)
	keep := idStrings(ids)
	if _, err := db.Exec(ctx,
		`UPDATE `+table+` SET discount_id = NULL WHERE discount_id = $1 AND NOT (id = ANY($2::uuid[]))`,
		discountID, keep); err != nil {
		return postgres.Translate(err, table)
	}
	if len(keep) == 0 {
		return nil
	}
	_, err := db.Exec(ctx, `UPDATE `+table+` SET discount_id = $1 WHERE id = ANY($2::uuid[])`, discountID, keep)
	return postgres.Translate(err, table)
}

func (r *Repo) linkedIDs(ctx context.Context, table string, discountID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx, `SELECT id FROM `+table+` WHERE discount_id=$1 ORDER BY id`, discountID)
	if err != nil {
		return nil, postgres.Translate(err, table)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	return ids, postgres.Translate(err, table)
}

// ProductDiscount implements Source. Discounts owned by a coupon never
// price a product directly.
func (r *Repo) ProductDiscount(ctx context.Context, productID uuid.UUID) (*uuid.UUID, *Discount, error) {
	var categoryID, discountID *uuid.UUID
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT category_id, discount_id FROM products WHERE id=$1`, productID).Scan(&categoryID, &discountID)
	if err != nil {
		return nil, nil, postgres.Translate(err, "product")
	}
	d, err := r.plainDiscount(ctx, discountID)
	return categoryID, d, err
}

// CategoryDiscount implements Source.
func (r *Repo) CategoryDiscount(ctx context.Context, categoryID uuid.UUID) (*uuid.UUID, *Discount, error) {
	var parentID, discountID *uuid.UUID
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT parent_id, discount_id FROM categories WHERE id=$1`, categoryID).Scan(&parentID, &discountID)
	if err != nil {
		return nil, nil, postgres.Translate(err, "category")
	}
	d, err := r.plainDiscount(ctx, discountID)
	return parentID, d, err
}

func (r *Repo) plainDiscount(ctx context.Context, id *uuid.UUID) (*Discount, error) {
	if id == nil {
		return nil, nil
	}
	d, err := scanDiscount(postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		SELECT `+discountCols+` FROM discounts d
		WHERE d.id=$1 AND NOT EXISTS (SELECT 1 FROM coupons c WHERE c.discount_id = d.id)`, *id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return d, postgres.Translate(err, "discount")
}

// ---- coupons ----

func (r *Repo) CreateCoupon(ctx context.Context, c *Coupon) error {
	c.ID = uuid.New()
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		INSERT INTO coupons(id, code, discount_id, active, usage_limit)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING used_times, created_at, updated_at`,
		c.ID, c.Code, c.DiscountID, c.Active, c.Limit,
	).Scan(&c.UsedTimes, &c.CreatedAt, &c.UpdatedAt)
	return postgres.Translate(err, "coupon")
}

func (r *Repo) GetCoupon(ctx context.Context, id uuid.UUID) (*Coupon, error) {
	c, err := scanCoupon(postgres.Conn(ctx, r.DB).QueryRow(ctx, `SELECT `+couponCols+` FROM coupons c WHERE c.id=$1`, id))
	if err != nil {
		return nil, postgres.Translate(err, "coupon")
	}
	return c, nil
}

// GetCouponByCode optionally locks the row for the rest of the transaction.
func (r *Repo) GetCouponByCode(ctx context.Context, code string, lock bool) (*Coupon, error) {
	q := `SELECT ` + couponCols + ` FROM coupons c WHERE c.code=$1`
	if lock {
		q += ` FOR UPDATE`
	}
	c, err := scanCoupon(postgres.Conn(ctx, r.DB).QueryRow(ctx, q, code))
	if err != nil {
		return nil, postgres.Translate(err, "coupon")
	}
	return c, nil
}

func (r *Repo) ListCoupons(ctx context.Context, f CouponFilter) ([]Coupon, error) {
	var (
		where = []string{"TRUE"}
		args  []any
	)
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, "c.code ILIKE $"+strconv.Itoa(len(args)))
	}
	if f.Active != nil {
		args = append(args, *f.Active)
		where = append(where, "c.active = $"+strconv.Itoa(len(args)))
	}
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx,
		`SELECT `+couponCols+` FROM coupons c WHERE `+strings.Join(where, " AND ")+` ORDER BY c.created_at DESC`, args...)
	if err != nil {
		return nil, postgres.Translate(err, "coupon")
	}
	defer rows.Close()

	out := []Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, postgres.Translate(err, "coupon")
		}
		out = append(out, *c)
	}
	return out, postgres.Translate(rows.Err(), "coupon")
}

func (r *Repo) UpdateCoupon(ctx context.Context, c *Coupon) error {
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		UPDATE coupons SET code=$2, active=$3, usage_limit=$4, updated_at=now()
		WHERE id=$1
		RETURNING used_times, created_at, updated_at`,
		c.ID, c.Code, c.Active, c.Limit,
	).Scan(&c.UsedTimes, &c.CreatedAt, &c.UpdatedAt)
	return postgres.Translate(err, "coupon")
}

func (r *Repo) IncrementCouponUse(ctx context.Context, id uuid.UUID) (int, error) {
	var used int
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`UPDATE coupons SET used_times = used_times + 1, updated_at = now() WHERE id=$1 RETURNING used_times`, id).Scan(&used)
	return used, postgres.Translate(err, "coupon")
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

type errUnknownTable string

func (e errUnknownTable) Error() string { return "unknown link table " + string(e) }

package orders

import (
	"context"
	"encoding/json"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"strconv"
	"strings"
)

type Repo struct{ DB *pgxpool.Pool }

const currentStatus = `(SELECT s.status FROM order_statuses s WHERE s.order_id = o.id ORDER BY s.seq DESC LIMIT 1)`

const orderCols = `o.id, o.external_id, o.user_id, o.coupon_code, COALESCE(` + currentStatus + `, ''),
	o.created_at, o.updated_at`

func scanOrder(row pgx.Row, extra ...any) (*Order, error) {
	var o Order
	dest := append([]any{&o.ID, &o.ExternalID, &o.UserID, &o.CouponCode, &o.Status, &o.CreatedAt, &o.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &o, nil
}

// ByExternalID finds an order by its idempotency key.
func (r *Repo) ByExternalID(ctx context.Context, key string) (uuid.UUID, error) {
	var id uuid.UUID
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `SELECT id FROM orders WHERE external_id=$1`, key).Scan(&id)
	return id, postgres.Translate(err, "order")
}

// Insert writes the order with its items, address and cost.
func (r *Repo) Insert(ctx context.Context, o *Order) error {
	db := postgres.Conn(ctx, r.DB)
	err := db.QueryRow(ctx, `
		INSERT INTO orders(id, external_id, user_id, coupon_code) VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`, o.ID, o.ExternalID, o.UserID, o.CouponCode,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return postgres.Translate(err, "order")
	}
	for i := range o.Items {
		it := &o.Items[i]
		attrs, err := json.Marshal(it.Attributes)
		if err != nil {
			return err
		}
		_, err = db.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, inventory_id, name, brand, attributes,
				base_price, discounted_price, quantity)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			it.ID, o.ID, it.ProductID, it.InventoryID, it.Name, it.Brand, attrs,
			it.BasePrice, it.DiscountedPrice, it.Quantity)
		if err != nil {
			return postgres.Translate(err, "order item")
		}
	}
	a := o.Address
	_, err = db.Exec(ctx, `
		INSERT INTO shipping_addresses(order_id, name, phone, urgent_phone, email, district,
			police_station, address, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, a.Name, a.Phone, a.UrgentPhone, a.Email, a.District, a.PoliceStation, a.Address, a.Note)
	if err != nil {
		return postgres.Translate(err, "shipping address")
	}
	c := o.Cost
	_, err = db.Exec(ctx, `
		INSERT INTO order_costs(order_id, total, offer, tax, shipping, subtotal)
		VALUES ($1,$2,$3,$4,$5,$6)`, o.ID, c.Total, c.Offer, c.Tax, c.Shipping, c.Subtotal)
	return postgres.Translate(err, "order cost")
}

func (r *Repo) InsertPayment(ctx context.Context, p *Payment) error {
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		INSERT INTO payments(id, order_id, amount, method, transaction_id, status)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING updated_at`,
		p.ID, p.OrderID, p.Amount, p.Method, p.TransactionID, p.Status,
	).Scan(&p.UpdatedAt)
	return postgres.Translate(err, "payment")
}

func (r *Repo) SetPaymentStatus(ctx context.Context, orderID uuid.UUID, status PaymentStatus) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx,
		`UPDATE payments SET status=$2, updated_at=now() WHERE order_id=$1`, orderID, status)
	if err != nil {
		return postgres.Translate(err, "payment")
	}
	if ct.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *Repo) AppendStatus(ctx context.Context, orderID uuid.UUID, status Status, message string) (*StatusEntry, error) {
	e := StatusEntry{ID: uuid.New(), Status: status, Message: message}
	db := postgres.Conn(ctx, r.DB)
	err := db.QueryRow(ctx, `
		INSERT INTO order_statuses(id, order_id, status, message) VALUES ($1,$2,$3,$4)
		RETURNING created_at`, e.ID, orderID, status, message,
	).Scan(&e.CreatedAt)
	if err != nil {
		return nil, postgres.Translate(err, "order status")
	}
	if _, err := db.Exec(ctx, `UPDATE orders SET updated_at=now() WHERE id=$1`, orderID); err != nil {
		return nil, postgres.Translate(err, "order")
	}
	return &e, nil
}

// LockHistory locks the order row and returns its status history, oldest
// first. Transitions on one order are serialized by this lock.
func (r *Repo) LockHistory(ctx context.Context, orderID uuid.UUID) ([]StatusEntry, error) {
	var id uuid.UUID
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT id FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&id)
	if err != nil {
		return nil, postgres.Translate(err, "order")
	}
	hist, err := r.statuses(ctx, []uuid.UUID{orderID})
	if err != nil {
		return nil, err
	}
	return hist[orderID], nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID, inc Includes) (*Order, error) {
	o, err := scanOrder(postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders o WHERE o.id=$1`, id))
	if err != nil {
		return nil, postgres.Translate(err, "order")
	}
	os := []Order{*o}
	if err := r.load(ctx, os, inc); err != nil {
		return nil, err
	}
	return &os[0], nil
}

var orderSorts = map[string]string{
	"created_at": "o.created_at",
	"subtotal":   "c.subtotal",
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]Order, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if q.UserID != nil {
		where = append(where, "o.user_id = "+arg(*q.UserID))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		n := arg("%" + s + "%")
		where = append(where, "(o.id::text ILIKE "+n+" OR a.name ILIKE "+n+" OR a.email ILIKE "+n+
			" OR a.address ILIKE "+n+" OR a.district ILIKE "+n+" OR a.police_station ILIKE "+n+")")
	}
	if p := strings.TrimSpace(q.Phone); p != "" {
		n := arg("%" + p + "%")
		where = append(where, "(a.phone ILIKE "+n+" OR a.urgent_phone ILIKE "+n+")")
	}
	if q.SubtotalMax != nil {
		where = append(where, "c.subtotal <= "+arg(*q.SubtotalMax))
	}
	if q.Status != "" {
		where = append(where, currentStatus+" = "+arg(q.Status))
	}

	from := ` FROM orders o
		LEFT JOIN shipping_addresses a ON a.order_id = o.id
		LEFT JOIN order_costs c ON c.order_id = o.id`
	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}
	db := postgres.Conn(ctx, r.DB)

	var total int
	if err := db.QueryRow(ctx, `SELECT count(*)`+from+filter, args...).Scan(&total); err != nil {
		return nil, 0, postgres.Translate(err, "order")
	}

	order, ok := orderSorts[q.SortBy]
	if !ok {
		order = "o.created_at"
	}
	dir := " ASC"
	if q.SortDesc {
		dir = " DESC"
	}
	sql := `SELECT ` + orderCols + from + filter + " ORDER BY " + order + dir + ", o.id LIMIT " +
		arg(q.Limit) + " OFFSET " + arg((q.Page-1)*q.Limit)
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, postgres.Translate(err, "order")
	}
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, postgres.Translate(err, "order")
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, postgres.Translate(err, "order")
	}
	if err := r.load(ctx, out, q.Includes); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return postgres.Translate(err, "order")
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// load attaches the requested relations to every order in os.
func (r *Repo) load(ctx context.Context, os []Order, inc Includes) error {
	if len(os) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(os))
	for i := range os {
		ids[i] = os[i].ID
	}
	if inc.Items {
		items, err := r.items(ctx, ids)
		if err != nil {
			return err
		}
		for i := range os {
			os[i].Items = items[os[i].ID]
		}
	}
	if inc.Address || inc.Cost || inc.Payment {
		if err := r.details(ctx, os, inc); err != nil {
			return err
		}
	}
	if inc.Statuses {
		hist, err := r.statuses(ctx, ids)
		if err != nil {
			return err
		}
		for i := range os {
			os[i].Statuses = hist[os[i].ID]
		}
	}
	return nil
}

func (r *Repo) items(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]Item, error) {
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx, `
		SELECT order_id, id, product_id, inventory_id, name, brand, attributes, base_price,
			discounted_price, quantity
		FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY name, id`, idStrings(orderIDs))
	if err != nil {
		return nil, postgres.Translate(err, "order item")
	}
	defer rows.Close()
	out := map[uuid.UUID][]Item{}
	for rows.Next() {
		var (
			orderID uuid.UUID
			it      Item
			attrs   []byte
		)
		err := rows.Scan(&orderID, &it.ID, &it.ProductID, &it.InventoryID, &it.Name, &it.Brand, &attrs,
			&it.BasePrice, &it.DiscountedPrice, &it.Quantity)
		if err != nil {
			return nil, postgres.Translate(err, "order item")
		}
		if err := json.Unmarshal(attrs, &it.Attributes); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, postgres.Translate(rows.Err(), "order item")
}

func (r *Repo) details(ctx context.Context, os []Order, inc Includes) error {
	db := postgres.Conn(ctx, r.DB)
	for i := range os {
		o := &os[i]
		if inc.Address {
			var a ShippingAddress
			err := db.QueryRow(ctx, `
				SELECT name, phone, urgent_phone, email, district, police_station, address, note
				FROM shipping_addresses WHERE order_id=$1`, o.ID,
			).Scan(&a.Name, &a.Phone, &a.UrgentPhone, &a.Email, &a.District, &a.PoliceStation, &a.Address, &a.Note)
			if err != nil {
				return postgres.Translate(err, "shipping address")
			}
			o.Address = &a
		}
		if inc.Cost {
			var c Cost
			err := db.QueryRow(ctx, `SELECT total, offer, tax, shipping, subtotal FROM order_costs WHERE order_id=$1`, o.ID).
				Scan(&c.Total, &c.Offer, &c.Tax, &c.Shipping, &c.Subtotal)
			if err != nil {
				return postgres.Translate(err, "order cost")
			}
			o.Cost = &c
		}
		if inc.Payment {
			var p Payment
			err := db.QueryRow(ctx, `
				SELECT id, order_id, amount, method, transaction_id, status, updated_at
				FROM payments WHERE order_id=$1`, o.ID,
			).Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.TransactionID, &p.Status, &p.UpdatedAt)
			if err != nil {
				return postgres.Translate(err, "payment")
			}
			o.Payment = &p
		}
	}
	return nil
}

func (r *Repo) statuses(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]StatusEntry, error) {
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx, `
		SELECT order_id, id, status, COALESCE(message, ''), created_at FROM order_statuses
		WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, seq`, idStrings(orderIDs))
	if err != nil {
		return nil, postgres.Translate(err, "order status")
	}
	defer rows.Close()
	out := map[uuid.UUID][]StatusEntry{}
	for rows.Next() {
		var orderID uuid.UUID
		var e StatusEntry
		if err := rows.Scan(&orderID, &e.ID, &e.Status, &e.Message, &e.CreatedAt); err != nil {
			return nil, postgres.Translate(err, "order status")
		}
		out[orderID] = append(out[orderID], e)
	}
	return out, postgres.Translate(rows.Err(), "order status")
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

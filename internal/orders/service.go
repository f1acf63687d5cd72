package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/carts"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/discounts"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/telemetry"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"net/mail"
	"strings"
	"time"
)

var (
	ErrOrderNotFound       = apperr.NotFound("order not found")
	ErrPaymentNotFound     = apperr.NotFound("payment not found")
	ErrCartEmpty           = apperr.Validation("cart is empty")
	ErrProductUnavailable  = apperr.Validation("cart contains a product that is no longer available")
	ErrAddressIncomplete   = apperr.Validation("shipping address is incomplete")
	ErrInvalidEmail        = apperr.Validation("shipping email is invalid")
	ErrInvalidMethod       = apperr.Validation("unknown payment method")
	ErrInvalidAction       = apperr.Validation("unknown order status action")
	ErrInvalidTransition   = apperr.Conflict("order status transition not allowed")
	ErrAlreadyPaid         = apperr.Conflict("order is already paid")
	ErrNotOnHold           = apperr.Conflict("order is not on hold")
	ErrHistoryInconsistent = apperr.Conflict("order has no status before hold")
)

var tracer = telemetry.Tracer("github.com/ariefcatur/go-storefront/internal/orders")

type Repository interface {
	ByExternalID(ctx context.Context, key string) (uuid.UUID, error)
	Insert(ctx context.Context, o *Order) error
	InsertPayment(ctx context.Context, p *Payment) error
	SetPaymentStatus(ctx context.Context, orderID uuid.UUID, status PaymentStatus) error
	AppendStatus(ctx context.Context, orderID uuid.UUID, status Status, message string) (*StatusEntry, error)
	LockHistory(ctx context.Context, orderID uuid.UUID) ([]StatusEntry, error)
	Get(ctx context.Context, id uuid.UUID, inc Includes) (*Order, error)
	List(ctx context.Context, q ListQuery) ([]Order, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Carts is satisfied by carts.Service.
type Carts interface {
	Lines(ctx context.Context, cartID uuid.UUID) ([]carts.Item, error)
	Replace(ctx context.Context, cartID uuid.UUID) (uuid.UUID, error)
}

// Products is satisfied by catalog.ProductService; prices come back with
// the discount resolved.
type Products interface {
	Get(ctx context.Context, id uuid.UUID, inc catalog.Includes) (*catalog.Product, error)
}

// Stock is satisfied by inventory.Service.
type Stock interface {
	Get(ctx context.Context, id uuid.UUID) (*inventory.Inventory, error)
	Reserve(ctx context.Context, lines []inventory.Line) error
	Restore(ctx context.Context, lines []inventory.Line) error
}

// Coupons is satisfied by discounts.Service.
type Coupons interface {
	Redeem(ctx context.Context, code string, orderAmount int64) (*discounts.Coupon, int64, error)
}

type ShippingFee interface {
	Current(ctx context.Context) (int64, error)
}

type Service struct {
	Repo      Repository
	Tx        UnitOfWork
	Carts     Carts
	Products  Products
	Stock     Stock
	Coupons   Coupons
	Shipping  ShippingFee
	Publisher Publisher
	Redis     *redis.Client // optional: status cache + idempotency fast path
	Producer  string        // service name stamped on events
}

// Place converts a cart into an order in one transaction: stock is
// reserved, the coupon redeemed, the snapshot written and the cart
// replaced. Events and caches are updated only after commit.
func (s *Service) Place(ctx context.Context, in PlaceInput) (*Placed, error) {
	ctx, span := tracer.Start(ctx, "orders.Place", trace.WithAttributes(attribute.String("cart.id", in.CartID.String())))
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = MethodCashOnDelivery
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if p, err := s.replay(ctx, key); p != nil || err != nil {
			return p, err
		}
	}

	var (
		o       *Order
		newCart uuid.UUID
	)
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = s.build(ctx, in, key); err != nil {
			return err
		}
		if err := s.Repo.Insert(ctx, o); err != nil {
			return err
		}
		o.Payment = &Payment{
			ID:      uuid.New(),
			OrderID: o.ID,
			Amount:  o.Cost.Subtotal,
			Method:  in.PaymentMethod,
			Status:  PaymentPending,
		}
		if err := s.Repo.InsertPayment(ctx, o.Payment); err != nil {
			return err
		}
		e, err := s.Repo.AppendStatus(ctx, o.ID, StatusPlaced, defaultMessage[StatusPlaced])
		if err != nil {
			return err
		}
		o.Status, o.Statuses = StatusPlaced, []StatusEntry{*e}
		newCart, err = s.Carts.Replace(ctx, in.CartID)
		return err
	})
	if err != nil {
		// lost a race on the same key: answer with the winner
		if key != "" && apperr.KindOf(err) == apperr.KindStorage {
			if p, rerr := s.replay(ctx, key); rerr == nil && p != nil {
				return p, nil
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", o.ID.String()))
	if key != "" && s.Redis != nil {
		_ = s.Redis.Set(ctx, fmt.Sprintf(redisx.KeyIdemOrderCreate, key), o.ID.String(), redisx.TTLIdempotency).Err()
	}
	s.cacheStatus(ctx, o.ID, StatusPlaced, o.Statuses[0].CreatedAt)
	s.publish(ctx, TopicOrderPlaced, EventOrderPlaced, OrderEventPayload{
		OrderID: o.ID.String(),
		Status:  StatusPlaced,
		Message: defaultMessage[StatusPlaced],
		Order:   *o,
	})
	log.WithFields(log.Fields{
		"order_id": o.ID, "cart_id": in.CartID, "items": len(o.Items), "subtotal": o.Cost.Subtotal,
	}).Info("order placed")
	return &Placed{Order: o, NewCartID: newCart}, nil
}

// build prices the cart lines and takes stock and coupon in the caller's tx.
func (s *Service) build(ctx context.Context, in PlaceInput, key string) (*Order, error) {
	lines, err := s.Carts.Lines(ctx, in.CartID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	addr := in.Address
	o := &Order{ID: uuid.New(), UserID: in.UserID, Address: &addr}
	if key != "" {
		o.ExternalID = &key
	}
	var total, pretax int64
	reserve := make([]inventory.Line, 0, len(lines))
	for _, l := range lines {
		p, err := s.Products.Get(ctx, l.ProductID, catalog.Includes{})
		if err != nil {
			return nil, err
		}
		if p.Status != catalog.StatusActive {
			e := ErrProductUnavailable.WithOp("orders.Place")
			e.Details = map[string]string{"product_id": p.ID.String(), "name": p.Name}
			return nil, e
		}
		inv, err := s.Stock.Get(ctx, l.InventoryID)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, Item{
			ID:              uuid.New(),
			ProductID:       p.ID,
			InventoryID:     inv.ID,
			Name:            p.Name,
			Brand:           p.Brand,
			Attributes:      inv.Attributes,
			BasePrice:       p.Price,
			DiscountedPrice: p.DiscountedPrice,
			Quantity:        l.Quantity,
		})
		total += p.Price * int64(l.Quantity)
		pretax += p.DiscountedPrice * int64(l.Quantity)
		reserve = append(reserve, inventory.Line{InventoryID: inv.ID, Quantity: l.Quantity})
	}
	if err := s.Stock.Reserve(ctx, reserve); err != nil {
		return nil, err
	}

	var couponOff int64
	if code := strings.TrimSpace(in.CouponCode); code != "" {
		c, off, err := s.Coupons.Redeem(ctx, code, pretax)
		if err != nil {
			return nil, err
		}
		couponOff, o.CouponCode = off, &c.Code
	}
	shipping, err := s.Shipping.Current(ctx)
	if err != nil {
		return nil, err
	}
	cost := ComputeCost(total, pretax, couponOff, shipping, 0)
	o.Cost = &cost
	return o, nil
}

// ComputeCost: offer is everything taken off the list price, subtotal is
// what the customer pays.
func ComputeCost(total, pretax, coupon, shipping, tax int64) Cost {
	return Cost{
		Total:    total,
		Offer:    total - pretax + coupon,
		Tax:      tax,
		Shipping: shipping,
		Subtotal: pretax - coupon + shipping + tax,
	}
}

// replay returns the order already created under key, or nil.
func (s *Service) replay(ctx context.Context, key string) (*Placed, error) {
	var id uuid.UUID
	if s.Redis != nil {
		if v, err := s.Redis.Get(ctx, fmt.Sprintf(redisx.KeyIdemOrderCreate, key)).Result(); err == nil {
			id, _ = uuid.Parse(v)
		}
	}
	if id == uuid.Nil {
		found, err := s.Repo.ByExternalID(ctx, key)
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		id = found
	}
	o, err := s.Repo.Get(ctx, id, IncludeAll)
	if err != nil {
		return nil, err
	}
	return &Placed{Order: o, Existed: true}, nil
}

func (in PlaceInput) validate() error {
	a := in.Address
	for _, v := range []string{a.Name, a.Phone, a.Email, a.District, a.PoliceStation, a.Address} {
		if strings.TrimSpace(v) == "" {
			return ErrAddressIncomplete
		}
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return ErrInvalidEmail
	}
	if in.PaymentMethod != "" && !in.PaymentMethod.Valid() {
		return ErrInvalidMethod
	}
	if in.CartID == uuid.Nil {
		return carts.ErrCartNotFound
	}
	return nil
}

// ParseAction accepts the query spelling, e.g. "unHold".
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", ErrInvalidAction
	}
	return a, nil
}

// Transition applies an admin action. The order row is locked for the
// whole transaction, so concurrent actions on one order serialize.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, action Action, message string) (*Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Transition", trace.WithAttributes(
		attribute.String("order.id", id.String()), attribute.String("order.action", string(action))))
	defer span.End()

	if !action.Valid() {
		return nil, ErrInvalidAction
	}
	var (
		from, to Status
		entry    *StatusEntry
	)
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		hist, err := s.Repo.LockHistory(ctx, id)
		if err != nil {
			return err
		}
		if len(hist) == 0 {
			return ErrHistoryInconsistent
		}
		from = hist[len(hist)-1].Status
		if action == ActionUnhold && from != StatusOnHold {
			return ErrNotOnHold
		}
		to = action.target(beforeHold(hist))
		if to == "" {
			return ErrHistoryInconsistent
		}
		// a held order only resumes or gets cancelled
		held := from == StatusOnHold && action != ActionUnhold && action != ActionCancel
		if held || !CanTransition(from, to) {
			e := ErrInvalidTransition.WithOp("orders.Transition")
			e.Details = map[string]string{"from": string(from), "to": string(to)}
			return e
		}

		switch {
		case to == StatusCompleted:
			o, err := s.Repo.Get(ctx, id, Includes{Payment: true})
			if err != nil {
				return err
			}
			if o.Payment != nil && o.Payment.Status == PaymentPaid {
				return ErrAlreadyPaid
			}
			if err := s.Repo.SetPaymentStatus(ctx, id, PaymentPaid); err != nil {
				return err
			}
		case restocks(to):
			if err := s.restock(ctx, id); err != nil {
				return err
			}
			if err := s.Repo.SetPaymentStatus(ctx, id, PaymentCancel); err != nil {
				return err
			}
		}

		if strings.TrimSpace(message) == "" {
			message = defaultMessage[to]
		}
		entry, err = s.Repo.AppendStatus(ctx, id, to, message)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	o, err := s.Repo.Get(ctx, id, IncludeAll)
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, id, to, entry.CreatedAt)
	s.publish(ctx, TopicOrderStatusChanged, EventOrderStatusChanged, OrderEventPayload{
		OrderID:        id.String(),
		Status:         to,
		PreviousStatus: from,
		Message:        entry.Message,
		Order:          *o,
	})
	log.WithFields(log.Fields{"order_id": id, "from": from, "to": to}).Info("order status changed")
	return o, nil
}

// beforeHold is the latest status that is not ON_HOLD.
func beforeHold(hist []StatusEntry) Status {
	for i := len(hist) - 1; i >= 0; i-- {
		if hist[i].Status != StatusOnHold {
			return hist[i].Status
		}
	}
	return ""
}

func (s *Service) restock(ctx context.Context, id uuid.UUID) error {
	o, err := s.Repo.Get(ctx, id, Includes{Items: true})
	if err != nil {
		return err
	}
	lines := make([]inventory.Line, len(o.Items))
	for i, it := range o.Items {
		lines[i] = inventory.Line{InventoryID: it.InventoryID, Quantity: it.Quantity}
	}
	return s.Stock.Restore(ctx, lines)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, inc Includes) (*Order, error) {
	return s.Repo.Get(ctx, id, inc)
}

// My lists the orders of one user.
func (s *Service) My(ctx context.Context, userID uuid.UUID, q ListQuery) (*OrderPage, error) {
	q.UserID = &userID
	return s.All(ctx, q)
}

func (s *Service) All(ctx context.Context, q ListQuery) (*OrderPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, apperr.Validationf("unknown status %q", q.Status)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	os, total, err := s.Repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &OrderPage{Orders: os, Total: total, CurrentPage: q.Page, Limit: q.Limit}, nil
}

// Delete removes an order. Stock held by an order that is still open is
// released first.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		hist, err := s.Repo.LockHistory(ctx, id)
		if err != nil {
			return err
		}
		if len(hist) > 0 {
			cur := hist[len(hist)-1].Status
			if !restocks(cur) && cur != StatusCompleted {
				if err := s.restock(ctx, id); err != nil {
					return err
				}
			}
		}
		return s.Repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	if s.Redis != nil {
		_ = s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, id)).Err()
	}
	log.WithField("order_id", id).Info("order deleted")
	return nil
}

type StatusView struct {
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CurrentStatus reads through the Redis status cache.
func (s *Service) CurrentStatus(ctx context.Context, id uuid.UUID) (*StatusView, error) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, id)
	if s.Redis != nil {
		if b, err := s.Redis.Get(ctx, key).Bytes(); err == nil {
			var v StatusView
			if json.Unmarshal(b, &v) == nil && v.Status != "" {
				return &v, nil
			}
		}
	}
	o, err := s.Repo.Get(ctx, id, Includes{})
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, id, o.Status, o.UpdatedAt)
	return &StatusView{Status: o.Status, UpdatedAt: o.UpdatedAt}, nil
}

func (s *Service) cacheStatus(ctx context.Context, id uuid.UUID, st Status, at time.Time) {
	if s.Redis == nil {
		return
	}
	b, _ := json.Marshal(StatusView{Status: st, UpdatedAt: at})
	if err := s.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, id), b, redisx.TTLStatusCache).Err(); err != nil {
		log.WithError(err).WithField("order_id", id).Warn("order status cache write failed")
	}
}

func (s *Service) publish(ctx context.Context, topic, eventType string, payload OrderEventPayload) {
	if s.Publisher == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Producer,
		CorrelationID: payload.OrderID,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		ev.TraceID = sc.TraceID().String()
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Error("order event encode failed")
		return
	}
	ev.Payload = b
	s.Publisher.Publish(ctx, topic, ev)
}

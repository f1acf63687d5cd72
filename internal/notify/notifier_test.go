package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu       sync.Mutex
	sent     []Message
	fail     error
	failOnce string // recipient whose next send fails
}

func (f *fakeMailer) Send(_ context.Context, m Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if f.failOnce != "" && m.To == f.failOnce {
		f.failOnce = ""
		return errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeMailer) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

func sampleOrder() orders.Order {
	return orders.Order{
		ID:     uuid.New(),
		Status: orders.StatusPlaced,
		Items: []orders.Item{{
			Name:            "Teak Chair",
			BasePrice:       1500,
			DiscountedPrice: 1200,
			Quantity:        2,
		}},
		Address: &orders.ShippingAddress{Name: "Rina", Email: "rina@example.com", Phone: "0812", District: "Dhaka", PoliceStation: "Gulshan", Address: "Road 1"},
		Cost:    &orders.Cost{Total: 3000, Offer: 600, Shipping: 100, Subtotal: 2500},
		Payment: &orders.Payment{Method: orders.MethodCashOnDelivery, Status: orders.PaymentPending, Amount: 2500},
	}
}

func envelope(t *testing.T, eventType string, p orders.OrderEventPayload) orders.Envelope {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return orders.Envelope{EventID: uuid.NewString(), EventType: eventType, EventVersion: 1, CorrelationID: p.OrderID, Payload: b}
}

func newNotifier(t *testing.T, m Mailer, rdb *redis.Client) *Notifier {
	t.Helper()
	n, err := New(m, "admin@shop.test", rdb, "storefront-notify")
	require.NoError(t, err)
	return n
}

func TestPlacedMailsCustomerAndAdmin(t *testing.T) {
	m := &fakeMailer{}
	n := newNotifier(t, m, nil)
	o := sampleOrder()

	err := n.Notify(context.Background(), envelope(t, orders.EventOrderPlaced, orders.OrderEventPayload{
		OrderID: o.ID.String(), Status: orders.StatusPlaced, Order: o,
	}))
	require.NoError(t, err)

	sent := m.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "rina@example.com", sent[0].To)
	assert.Equal(t, "admin@shop.test", sent[1].To)
	assert.Contains(t, sent[0].HTML, "Teak Chair")
	assert.Contains(t, sent[0].HTML, "2,400", "line total is discounted price times quantity")
	assert.Contains(t, sent[0].HTML, o.ID.String())
	assert.Contains(t, sent[1].HTML, "CASH_ON_DELIVERY")
}

func TestStatusMails(t *testing.T) {
	cases := []struct {
		status   orders.Status
		previous orders.Status
		subject  string
	}{
		{orders.StatusProcessing, orders.StatusPlaced, "Order confirmed!"},
		{orders.StatusShipping, orders.StatusProcessing, "Order shipping!"},
		{orders.StatusShipped, orders.StatusShipping, "Order shipped!"},
		{orders.StatusCompleted, orders.StatusShipped, "Order delivered!"},
		{orders.StatusCancelled, orders.StatusPlaced, ""},
		{orders.StatusReturned, orders.StatusShipped, ""},
		{orders.StatusOnHold, orders.StatusPlaced, ""},
		{orders.StatusProcessing, orders.StatusOnHold, ""},
	}
	for _, tc := range cases {
		t.Run(string(tc.previous)+"->"+string(tc.status), func(t *testing.T) {
			m := &fakeMailer{}
			n := newNotifier(t, m, nil)
			o := sampleOrder()
			o.Status = tc.status

			err := n.Notify(context.Background(), envelope(t, orders.EventOrderStatusChanged, orders.OrderEventPayload{
				OrderID: o.ID.String(), Status: tc.status, PreviousStatus: tc.previous, Order: o,
			}))
			require.NoError(t, err)

			sent := m.messages()
			if tc.subject == "" {
				assert.Empty(t, sent)
				return
			}
			require.Len(t, sent, 1)
			assert.Equal(t, tc.subject, sent[0].Subject)
			assert.Equal(t, "rina@example.com", sent[0].To)
		})
	}
}

func TestNotifyRejectsBadPayload(t *testing.T) {
	n := newNotifier(t, &fakeMailer{}, nil)
	err := n.Notify(context.Background(), orders.Envelope{EventType: orders.EventOrderPlaced, Payload: json.RawMessage(`"nope"`)})
	assert.Error(t, err)
}

func TestHandleMessageDedup(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	m := &fakeMailer{}
	n := newNotifier(t, m, rdb)
	o := sampleOrder()
	ev := envelope(t, orders.EventOrderStatusChanged, orders.OrderEventPayload{
		OrderID: o.ID.String(), Status: orders.StatusShipped, PreviousStatus: orders.StatusShipping, Order: o,
	})
	msg := kafka.Message{Topic: orders.TopicOrderStatusChanged, Value: kafkax.MustMarshal(ev)}

	require.NoError(t, n.HandleMessage(ctx, msg))
	require.NoError(t, n.HandleMessage(ctx, msg))
	assert.Len(t, m.messages(), 1, "redelivered event is mailed once")
	assert.True(t, mr.Exists("dedup:storefront-notify:"+ev.EventID+":"+tplShipped))
}

func TestHandleMessageRetriesAfterFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	m := &fakeMailer{fail: errors.New("smtp down")}
	n := newNotifier(t, m, rdb)
	o := sampleOrder()
	ev := envelope(t, orders.EventOrderPlaced, orders.OrderEventPayload{OrderID: o.ID.String(), Status: orders.StatusPlaced, Order: o})
	msg := kafka.Message{Value: kafkax.MustMarshal(ev)}

	assert.Error(t, n.HandleMessage(ctx, msg))
	assert.False(t, mr.Exists("dedup:storefront-notify:"+ev.EventID+":"+tplPlacedCustomer), "failed mail stays retryable")

	m.mu.Lock()
	m.fail = nil
	m.mu.Unlock()
	require.NoError(t, n.HandleMessage(ctx, msg))
	assert.Len(t, m.messages(), 2)
}

func TestHandleMessageRetryResendsOnlyFailedMail(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	m := &fakeMailer{failOnce: "admin@shop.test"}
	n := newNotifier(t, m, rdb)
	o := sampleOrder()
	ev := envelope(t, orders.EventOrderPlaced, orders.OrderEventPayload{OrderID: o.ID.String(), Status: orders.StatusPlaced, Order: o})
	msg := kafka.Message{Value: kafkax.MustMarshal(ev)}

	assert.Error(t, n.HandleMessage(ctx, msg))
	assert.True(t, mr.Exists("dedup:storefront-notify:"+ev.EventID+":"+tplPlacedCustomer))
	assert.False(t, mr.Exists("dedup:storefront-notify:"+ev.EventID+":"+tplPlacedAdmin))

	require.NoError(t, n.HandleMessage(ctx, msg))
	require.NoError(t, n.HandleMessage(ctx, msg))

	var customer, admin int
	for _, sent := range m.messages() {
		switch sent.To {
		case "rina@example.com":
			customer++
		case "admin@shop.test":
			admin++
		}
	}
	assert.Equal(t, 1, customer, "customer is mailed once across retries")
	assert.Equal(t, 1, admin)
}

func TestHandleMessageDropsGarbage(t *testing.T) {
	m := &fakeMailer{}
	n := newNotifier(t, m, nil)
	assert.NoError(t, n.HandleMessage(context.Background(), kafka.Message{Value: []byte("{broken")}))
	assert.Empty(t, m.messages())
}

func TestDirectPublisher(t *testing.T) {
	m := &fakeMailer{}
	n := newNotifier(t, m, nil)
	o := sampleOrder()
	ev := envelope(t, orders.EventOrderPlaced, orders.OrderEventPayload{OrderID: o.ID.String(), Status: orders.StatusPlaced, Order: o})

	ctx, cancel := context.WithCancel(context.Background())
	n.Direct().Publish(ctx, orders.TopicOrderPlaced, ev)
	cancel() // request finished; delivery must still happen

	assert.Eventually(t, func() bool { return len(m.messages()) == 2 }, time.Second, 10*time.Millisecond)
}

func TestMoney(t *testing.T) {
	cases := map[int64]string{0: "0", 999: "999", 1000: "1,000", 1250000: "1,250,000", -4500: "-4,500"}
	for in, want := range cases {
		assert.Equal(t, want, money(in))
	}
}

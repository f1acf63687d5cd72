package notify

import (
	"context"
	"encoding/json"
	"fmt"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"html/template"
	"time"
)

const sendTimeout = 30 * time.Second

type mailSpec struct {
	template string
	subject  string
	admin    bool // to the shop mailbox instead of the customer
}

// Placing an order mails both sides; status changes mail the customer only.
var (
	placedMails = []mailSpec{
		{template: tplPlacedCustomer, subject: "Your order has been placed!"},
		{template: tplPlacedAdmin, subject: "New order placed!", admin: true},
	}
	statusMails = map[orders.Status]mailSpec{
		orders.StatusProcessing: {template: tplConfirmed, subject: "Order confirmed!"},
		orders.StatusShipping:   {template: tplShipping, subject: "Order shipping!"},
		orders.StatusShipped:    {template: tplShipped, subject: "Order shipped!"},
		orders.StatusCompleted:  {template: tplDelivered, subject: "Order delivered!"},
	}
)

// Notifier turns order events into emails.
type Notifier struct {
	mailer  Mailer
	admin   string
	tpls    map[string]*template.Template
	rdb     *redis.Client
	service string
}

// New parses the embedded templates. rdb may be nil, which disables event
// dedup.
func New(m Mailer, adminEmail string, rdb *redis.Client, service string) (*Notifier, error) {
	tpls, err := parseTemplates()
	if err != nil {
		return nil, errors.Wrap(err, "parse mail templates")
	}
	return &Notifier{mailer: m, admin: adminEmail, tpls: tpls, rdb: rdb, service: service}, nil
}

// Notify sends the emails that belong to ev. Events without mail are ignored.
// With Redis configured every mail is sent at most once per event id.
func (n *Notifier) Notify(ctx context.Context, ev orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.OrderEventPayload](ev.Payload)
	if err != nil {
		return err
	}

	var specs []mailSpec
	switch ev.EventType {
	case orders.EventOrderPlaced:
		specs = placedMails
	case orders.EventOrderStatusChanged:
		// unhold re-enters an earlier status; the customer already got that mail
		if p.PreviousStatus == orders.StatusOnHold {
			return nil
		}
		if s, ok := statusMails[p.Status]; ok {
			specs = []mailSpec{s}
		}
	}

	for _, s := range specs {
		to := n.admin
		if !s.admin {
			to = ""
			if p.Order.Address != nil {
				to = p.Order.Address.Email
			}
		}
		if to == "" {
			continue
		}
		if err := n.send(ctx, ev.EventID, p, s, to); err != nil {
			return err
		}
	}
	return nil
}

// send delivers one mail of an event at most once. The dedup key is per
// template, so a retry after a partial failure skips the mails that already
// went out; a failed send releases only its own key.
func (n *Notifier) send(ctx context.Context, eventID string, p orders.OrderEventPayload, s mailSpec, to string) error {
	fields := log.Fields{"order_id": p.OrderID, "to": to, "template": s.template}

	key := fmt.Sprintf(redisx.KeyDedup, n.service, eventID, s.template)
	dedup := n.rdb != nil && eventID != ""
	if dedup {
		first, err := redisx.Once(ctx, n.rdb, key, redisx.TTLDedup)
		if err != nil {
			return errors.Wrap(err, "dedup")
		}
		if !first {
			log.WithFields(fields).Debug("order email already sent")
			return nil
		}
	}
	release := func() {
		if dedup {
			// allow the redelivery to try again
			_ = n.rdb.Del(context.WithoutCancel(ctx), key).Err()
		}
	}

	html, err := render(n.tpls[s.template], mailData{Order: p.Order, Message: p.Message})
	if err != nil {
		release()
		return errors.Wrapf(err, "render %s", s.template)
	}
	if err := n.mailer.Send(ctx, Message{To: to, Subject: s.subject, HTML: html}); err != nil {
		release()
		log.WithError(err).WithFields(fields).Error("order email failed")
		return errors.Wrap(err, "send mail")
	}
	log.WithFields(fields).Info("order email sent")
	return nil
}

// HandleMessage is the kafka consumer handler. Mails of a redelivered
// event are skipped one by one through their dedup keys.
func (n *Notifier) HandleMessage(ctx context.Context, m kafka.Message) error {
	var ev orders.Envelope
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		// pesan rusak tidak akan pernah sukses, commit saja
		log.WithError(err).WithField("topic", m.Topic).Warn("drop undecodable order event")
		return nil
	}
	if ev.EventID == "" {
		ev.EventID = kafkax.HeaderValue(m.Headers, "x-event-id")
	}
	return n.Notify(ctx, ev)
}

// Direct delivers events in-process when no broker is configured.
func (n *Notifier) Direct() orders.Publisher {
	return orders.PublisherFunc(func(ctx context.Context, _ string, ev orders.Envelope) {
		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
			defer cancel()
			_ = n.Notify(ctx, ev)
		}()
	})
}

package orders

import (
	"context"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"strconv"
)

// Publisher delivers order events after the transaction committed.
// Delivery is best effort and never fails the request.
type Publisher interface {
	Publish(ctx context.Context, topic string, ev Envelope)
}

type PublisherFunc func(ctx context.Context, topic string, ev Envelope)

func (f PublisherFunc) Publish(ctx context.Context, topic string, ev Envelope) { f(ctx, topic, ev) }

// KafkaPublisher hands events to the async producer, keyed by order id.
type KafkaPublisher struct{ Producer *kafkax.Producer }

func (k KafkaPublisher) Publish(_ context.Context, topic string, ev Envelope) {
	k.Producer.Publish(topic, PartitionKey(ev.CorrelationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(ev.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(ev.EventVersion))},
		kafkago.Header{Key: "x-event-id", Value: []byte(ev.EventID)},
	)
}

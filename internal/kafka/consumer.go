package kafka

import (
	"context"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"sync"
	"time"
)

// Handler returns nil when the message is done. An error triggers a retry.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int

	MaxAttempts int
	Backoff     time.Duration // doubles after each failed attempt
}

func NewConsumer(brokers []string, group string, topics []string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, MaxAttempts: 5, Backoff: 500 * time.Millisecond}
}

// Start blocks until ctx is cancelled or the reader fails. A message whose
// handler keeps failing is retried MaxAttempts times, then logged and
// committed so one poisoned event cannot stall the partition.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				c.handle(ctx, h, m)
			}
		}()
	}
	stop := func() {
		close(jobs)
		wg.Wait()
	}

	// dispatcher loop
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			// kecilkan noise saat shutdown
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) {
	if !c.process(ctx, h, m) {
		return
	}
	if err := c.r.CommitMessages(ctx, m); err != nil {
		log.WithError(err).WithField("topic", m.Topic).Warn("commit failed")
	}
}

// process runs h with retries and reports whether the offset may be
// committed. Only shutdown leaves a message uncommitted.
func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) bool {
	entry := log.WithFields(log.Fields{"topic": m.Topic, "partition": m.Partition, "offset": m.Offset})
	backoff := c.Backoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if attempt >= c.MaxAttempts {
			entry.WithError(err).WithField("attempts", attempt).Error("giving up on message")
			return true
		}
		entry.WithError(err).WithField("attempt", attempt).Warn("handler failed, retrying")
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return false
		}
	}
}

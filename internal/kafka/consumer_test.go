package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestProcessRetriesThenSucceeds(t *testing.T) {
	c := &Consumer{MaxAttempts: 3, Backoff: time.Millisecond}
	calls := 0
	ok := c.process(context.Background(), func(context.Context, kafka.Message) error {
		calls++
		if calls < 3 {
			return errors.New("smtp down")
		}
		return nil
	}, kafka.Message{Topic: "order.placed"})

	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestProcessGivesUpAfterMaxAttempts(t *testing.T) {
	c := &Consumer{MaxAttempts: 2, Backoff: time.Millisecond}
	calls := 0
	ok := c.process(context.Background(), func(context.Context, kafka.Message) error {
		calls++
		return errors.New("boom")
	}, kafka.Message{})

	assert.True(t, ok, "poisoned message is committed")
	assert.Equal(t, 2, calls)
}

func TestProcessStopsOnShutdown(t *testing.T) {
	c := &Consumer{MaxAttempts: 5, Backoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	ok := c.process(ctx, func(context.Context, kafka.Message) error {
		cancel()
		return errors.New("interrupted")
	}, kafka.Message{})

	assert.False(t, ok)
}

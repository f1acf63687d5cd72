package kafka

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type placed struct {
	OrderID string `json:"order_id"`
	Total   int64  `json:"total"`
}

func TestUnwrapPayload(t *testing.T) {
	raw := json.RawMessage(MustMarshal(placed{OrderID: "o-1", Total: 1200}))

	got, err := UnwrapPayload[placed](raw)
	require.NoError(t, err)
	assert.Equal(t, placed{OrderID: "o-1", Total: 1200}, got)

	_, err = UnwrapPayload[placed](json.RawMessage(`{"order_id":`))
	assert.ErrorContains(t, err, "decode payload")
}

func TestMustMarshalPanicsOnUnsupported(t *testing.T) {
	assert.Panics(t, func() { MustMarshal(make(chan int)) })
}

func TestHeaderValue(t *testing.T) {
	hs := []kafka.Header{
		{Key: "x-event-type", Value: []byte("OrderPlaced")},
		{Key: "x-event-version", Value: []byte("1")},
	}
	assert.Equal(t, "OrderPlaced", HeaderValue(hs, "x-event-type"))
	assert.Equal(t, "", HeaderValue(hs, "x-missing"))
}

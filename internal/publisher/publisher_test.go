package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fjod/go_checkout/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	messages []kafka.Message
	err      error
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, msgs...)
	return nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestOrderPlaced_PublishesKeyedEvent(t *testing.T) {
	w := &captureWriter{}
	p := &Publisher{writer: w}

	req := &domain.SubmissionRequest{
		SessionID: "session-1",
		Items: []domain.SubmissionItem{
			{ItemID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
		},
		Summary: domain.OrderSummary{Total: decimal.NewFromInt(200), Currency: "USD"},
	}

	err := p.OrderPlaced(context.Background(), req, "ORD-1")
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "session-1", string(msg.Key))
	assert.Equal(t, EventOrderPlaced, headerValue(msg, "event_type"))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "ORD-1", payload["order_number"])
	assert.Equal(t, "session-1", payload["session_id"])
}

func TestItemSaved_PublishesEvent(t *testing.T) {
	w := &captureWriter{}
	p := &Publisher{writer: w}

	item := domain.LineItem{ID: "p1", Name: "widget", Quantity: 3, UnitPrice: decimal.NewFromInt(5)}
	err := p.ItemSaved(context.Background(), "session-1", item)
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, EventItemSaved, headerValue(msg, "event_type"))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "p1", payload["item_id"])
	assert.Equal(t, float64(3), payload["quantity"])
}

func TestPublish_WriterErrorWrapped(t *testing.T) {
	w := &captureWriter{err: errors.New("broker down")}
	p := &Publisher{writer: w}

	err := p.ItemSaved(context.Background(), "session-1", domain.LineItem{ID: "p1"})
	assert.ErrorContains(t, err, "failed to publish item.saved")
}

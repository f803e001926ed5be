// Package publisher emits checkout lifecycle events to kafka. The host can
// run without it; every publisher reference in the core is nil-safe.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_checkout/domain"
	"github.com/segmentio/kafka-go"
)

const (
	EventOrderPlaced = "order.placed"
	EventItemSaved   = "item.saved"
)

// messageWriter is the slice of kafka.Writer the publisher needs; tests
// swap in a capture implementation.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "checkout-events",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w}
}

// OrderPlaced publishes the completed order. Key is the session id so all
// events of one session stay ordered.
func (p *Publisher) OrderPlaced(ctx context.Context, req *domain.SubmissionRequest, orderNumber string) error {
	payload := map[string]interface{}{
		"session_id":   req.SessionID,
		"order_number": orderNumber,
		"items":        req.Items,
		"total_amount": req.Summary.Total,
		"currency":     req.Summary.Currency,
		"placed_at":    time.Now(),
	}
	return p.publish(ctx, EventOrderPlaced, req.SessionID, payload)
}

// ItemSaved tells the wishlist collaborator about an item moved out of the
// active cart.
func (p *Publisher) ItemSaved(ctx context.Context, sessionID string, item domain.LineItem) error {
	payload := map[string]interface{}{
		"session_id": sessionID,
		"item_id":    item.ID,
		"name":       item.Name,
		"quantity":   item.Quantity,
		"unit_price": item.UnitPrice,
		"saved_at":   time.Now(),
	}
	return p.publish(ctx, EventItemSaved, sessionID, payload)
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, payload map[string]interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payloadJSON,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if errWrite := p.writer.WriteMessages(ctx, msg); errWrite != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, errWrite)
	}
	return nil
}

// Close releases the underlying kafka writer when one is attached.
func (p *Publisher) Close() error {
	if w, ok := p.writer.(*kafka.Writer); ok {
		return w.Close()
	}
	return nil
}

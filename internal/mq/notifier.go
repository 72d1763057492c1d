package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// publisher is the part of Publisher the notifier needs.
type publisher interface {
	Publish(ctx context.Context, routingKey string, msg any) error
}

// StatusNotifier implements checker.Notifier by publishing to RabbitMQ. The bot
// process consumes the queue and delivers the text.
type StatusNotifier struct {
	pub publisher
	now func() time.Time
}

// NewStatusNotifier creates a notifier that publishes status changes to RabbitMQ.
func NewStatusNotifier(pub *Publisher) *StatusNotifier {
	return &StatusNotifier{pub: pub, now: time.Now}
}

// Notify publishes a rendered status message for subscriberID.
func (n *StatusNotifier) Notify(ctx context.Context, subscriberID int64, text string) error {
	msg := StatusChangeMsg{SubscriberID: subscriberID, Text: text, When: n.now()}
	if err := n.pub.Publish(ctx, RoutingStatusChange, msg); err != nil {
		return fmt.Errorf("publish status change for subscriber %d: %w", subscriberID, err)
	}
	return nil
}

// DecodeStatusChange parses a status change message body.
func DecodeStatusChange(body []byte) (StatusChangeMsg, error) {
	var msg StatusChangeMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("bad status_change message: %w", err)
	}
	if msg.SubscriberID == 0 || msg.Text == "" {
		return msg, fmt.Errorf("bad status_change message: missing subscriber or text")
	}
	return msg, nil
}

package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange and queue/routing key constants.
const (
	ExchangeName = "dtek"

	RoutingStatusChange = "status.change"

	QueueStatusChange = "dtek.status_change"
)

// ── Message types ────────────────────────────────────────────────────

// StatusChangeMsg is published by the worker when a subscriber's status changes.
// Text is already rendered; the bot only delivers it.
type StatusChangeMsg struct {
	SubscriberID int64     `json:"subscriber_id"`
	Text         string    `json:"text"`
	When         time.Time `json:"when"`
}

// ── Topology setup ───────────────────────────────────────────────────

// queues maps queue names to their routing keys.
var queues = map[string]string{
	QueueStatusChange: RoutingStatusChange,
}

// SetupTopology declares the exchange, all queues, and bindings.
// Safe to call multiple times (all declarations are idempotent).
func SetupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	for queue, key := range queues {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, key, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}
	return nil
}

// session is a connection plus one channel with the topology declared.
type session struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func openSession(url string, prefetch int) (*session, error) {
	conn, err := dialWithRetry(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	s := &session{conn: conn, ch: ch}
	if err := SetupTopology(ch); err != nil {
		s.close()
		return nil, err
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			s.close()
			return nil, fmt.Errorf("set qos: %w", err)
		}
	}
	return s, nil
}

func (s *session) close() {
	if s.ch != nil {
		s.ch.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

// ── Publisher ────────────────────────────────────────────────────────

// Publisher publishes messages to the RabbitMQ exchange.
type Publisher struct {
	s *session
}

// NewPublisher connects to RabbitMQ, sets up topology, and returns a Publisher.
func NewPublisher(url string) (*Publisher, error) {
	s, err := openSession(url, 0)
	if err != nil {
		return nil, err
	}
	return &Publisher{s: s}, nil
}

// Publish serializes msg to JSON and publishes it with the given routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return p.s.ch.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         data,
	})
}

func (p *Publisher) Close() {
	p.s.close()
}

// ── Consumer ─────────────────────────────────────────────────────────

// Consumer consumes messages from RabbitMQ queues, one at a time.
type Consumer struct {
	s *session
}

// NewConsumer connects to RabbitMQ, sets up topology, and returns a Consumer.
func NewConsumer(url string) (*Consumer, error) {
	s, err := openSession(url, 1)
	if err != nil {
		return nil, err
	}
	return &Consumer{s: s}, nil
}

// Handler processes one message body. Returning an error drops the message;
// delivery is never retried.
type Handler func(ctx context.Context, body []byte) error

// Listen consumes queue until ctx is done or the channel closes, calling fn
// for every delivery and acking it afterwards.
func (c *Consumer) Listen(ctx context.Context, queue string, fn Handler) error {
	deliveries, err := c.s.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}
	log.Printf("[mq] consuming from %s", queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("consume %s: delivery channel closed", queue)
			}
			if err := fn(ctx, d.Body); err != nil {
				log.Printf("[mq] %s: dropping message: %v", queue, err)
			}
			if err := d.Ack(false); err != nil {
				log.Printf("[mq] %s: ack failed: %v", queue, err)
			}
		}
	}
}

func (c *Consumer) Close() {
	c.s.close()
}

// ── Helpers ──────────────────────────────────────────────────────────

// dialWithRetry attempts to connect to RabbitMQ with exponential backoff.
func dialWithRetry(url string) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := range 5 {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		wait := time.Duration(1<<uint(i)) * time.Second
		log.Printf("[mq] connection attempt %d failed: %v, retrying in %s", i+1, err, wait)
		time.Sleep(wait)
	}
	return nil, fmt.Errorf("connect to rabbitmq after 5 attempts: %w", err)
}

// Package events publishes storefront domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"storefront-service/internal/domain"
)

const RoutingKeyOrderPlaced = "order.placed"

// Publisher announces placed orders.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order domain.Order) error
	Close() error
}

// OrderPlaced is the message body of an order.placed event.
type OrderPlaced struct {
	EventID    string       `json:"event_id"`
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurred_at"`
	Order      domain.Order `json:"order"`
}

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       Channel
	exchange string
	timeout  time.Duration
	logger   *slog.Logger
}

// Dial connects to the broker and declares a durable topic exchange.
func Dial(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: failed to dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: failed to open a channel: %w", err)
	}
	p, err := NewAMQPPublisher(ch, exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewAMQPPublisher declares the exchange on an already open channel.
func NewAMQPPublisher(ch Channel, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	if exchange == "" {
		return nil, fmt.Errorf("events: exchange name cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("events: failed to declare exchange '%s': %w", exchange, err)
	}
	return &AMQPPublisher{
		ch:       ch,
		exchange: exchange,
		timeout:  10 * time.Second,
		logger:   logger.With("component", "events", "exchange", exchange),
	}, nil
}

func (p *AMQPPublisher) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	event := OrderPlaced{
		EventID:    uuid.NewString(),
		Type:       RoutingKeyOrderPlaced,
		OccurredAt: time.Now().UTC(),
		Order:      order,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: failed to marshal order event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.ch.PublishWithContext(publishCtx, p.exchange, RoutingKeyOrderPlaced, false, false, msg); err != nil {
		return fmt.Errorf("events: failed to publish order %s: %w", order.ID, err)
	}
	p.logger.Info("order event published", "order_id", order.ID, "event_id", event.EventID)
	return nil
}

func (p *AMQPPublisher) Close() error {
	var firstErr error
	if err := p.ch.Close(); err != nil {
		firstErr = err
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NoopPublisher drops events; used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(context.Context, domain.Order) error { return nil }
func (NoopPublisher) Close() error                                            { return nil }

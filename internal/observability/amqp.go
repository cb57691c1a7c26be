package observability

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventPublisher delivers websocket lifecycle events to the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, envelope EventEnvelope, headers map[string]string) error
}

// AMQPEventPublisher publishes event envelopes to a topic exchange.
type AMQPEventPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPEventPublisher connects and declares the topic exchange.
func NewAMQPEventPublisher(url, exchange string) (*AMQPEventPublisher, error) {
	if url == "" {
		return nil, errors.New("amqp url is empty")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPEventPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *AMQPEventPublisher) Publish(ctx context.Context, routingKey string, envelope EventEnvelope, headers map[string]string) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	amqpHeaders := amqp.Table{}
	for key, value := range headers {
		amqpHeaders[key] = value
	}

	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      amqpHeaders,
	})
}

func (p *AMQPEventPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

var defaultPublisher EventPublisher

// SetPublisher installs the process-wide event publisher. Events are dropped
// silently until one is set.
func SetPublisher(publisher EventPublisher) {
	defaultPublisher = publisher
}

// PublishEvent sends an envelope through the installed publisher. Failures
// are counted, not propagated into request handling.
func PublishEvent(ctx context.Context, routingKey string, envelope EventEnvelope, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}

	err := defaultPublisher.Publish(ctx, routingKey, envelope, headers)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}

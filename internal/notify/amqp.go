package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"visualeyes/pkg/logger"
)

// QueueName is the durable queue the mail worker consumes.
const QueueName = "notifications.outbound"

// AMQPPublisher publishes notifications to RabbitMQ. Messages are
// persistent so they survive broker restarts; delivery to the mail worker
// is at-least-once.
type AMQPPublisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher connects to the broker and declares the queue.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		QueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}

	p.conn = conn
	p.ch = ch
	return nil
}

// Send publishes one notification. A closed channel triggers a single
// reconnect attempt before giving up.
func (p *AMQPPublisher) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.publish(ctx, pub)
	if err != nil && (p.conn == nil || p.conn.IsClosed()) {
		logger.Warn(ctx, "amqp connection lost, reconnecting", "error", err)
		if rerr := p.connect(); rerr != nil {
			return rerr
		}
		err = p.publish(ctx, pub)
	}
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) publish(ctx context.Context, pub amqp.Publishing) error {
	return p.ch.PublishWithContext(ctx,
		"",        // default exchange
		QueueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	)
}

// Close shuts down the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// LogNotifier writes notifications to the log instead of a broker. Used in
// development and tests when no broker is configured.
type LogNotifier struct{}

// Send logs the notification.
func (LogNotifier) Send(ctx context.Context, msg Message) error {
	logger.Info(ctx, "notification dispatched",
		"to", msg.To,
		"template", msg.Template)
	return nil
}

package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// session is one open connection and channel with the topology declared.
type session interface {
	Publish(ctx context.Context, exchange, key string, msg amqp091.Publishing) error
	IsClosed() bool
	Close() error
}

type dialFunc func(url, exchangeName, queueName string) (session, error)

// AMQPPublisher publishes events to a durable direct exchange.
// Events are routed with the queue name as routing key.
//
// A dropped connection is re-dialed on the next Publish. A publish that fails
// on a dead session is retried once on a fresh one.
type AMQPPublisher struct {
	url          string
	exchangeName string
	queueName    string
	dial         dialFunc

	mu      sync.Mutex
	session session
	closed  bool
}

var _ Publisher = (*AMQPPublisher)(nil)

var errPublisherClosed = errors.New("publisher is closed")

// NewAMQPPublisher dials the broker and declares the exchange, queue and binding.
func NewAMQPPublisher(url, exchangeName, queueName string) (*AMQPPublisher, error) {
	return newAMQPPublisher(url, exchangeName, queueName, dialSession)
}

func newAMQPPublisher(url, exchangeName, queueName string, dial dialFunc) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		dial:         dial,
	}

	s, err := dial(url, exchangeName, queueName)
	if err != nil {
		return nil, err
	}
	p.session = s
	return p, nil
}

// current returns a live session, dialing a new one when the last was lost.
func (p *AMQPPublisher) current() (session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errPublisherClosed
	}
	if p.session != nil && !p.session.IsClosed() {
		return p.session, nil
	}
	if p.session != nil {
		p.session.Close()
		p.session = nil
		slog.Warn("AMQP connection lost, reconnecting", "exchange", p.exchangeName)
	}

	s, err := p.dial(p.url, p.exchangeName, p.queueName)
	if err != nil {
		return nil, err
	}
	p.session = s
	slog.Info("AMQP connection established", "exchange", p.exchangeName)
	return s, nil
}

// discard drops s if it is still the current session.
func (p *AMQPPublisher) discard(s session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == s {
		p.session.Close()
		p.session = nil
	}
}

// Publish sends one persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, event MembershipEvent) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    event.At,
		Type:         string(event.Type),
		Body:         body,
	}

	for attempt := 0; ; attempt++ {
		s, err := p.current()
		if err != nil {
			return fmt.Errorf("failed to connect to AMQP: %w", err)
		}

		err = s.Publish(ctx, p.exchangeName, p.queueName, msg)
		if err == nil {
			break
		}
		if !s.IsClosed() || attempt > 0 {
			return fmt.Errorf("failed to publish event: %w", err)
		}
		p.discard(s)
	}

	slog.DebugContext(ctx, "Published membership event",
		"type", event.Type,
		"group_id", event.GroupID,
		"exchange", p.exchangeName,
	)
	return nil
}

// Close closes the current session. Later publishes fail.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.session == nil {
		return nil
	}
	err := p.session.Close()
	p.session = nil
	return err
}

type amqpSession struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func dialSession(url, exchangeName, queueName string) (session, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	s := &amqpSession{conn: conn, channel: channel}
	if err := s.setup(exchangeName, queueName); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to set up exchange and queue: %w", err)
	}
	return s, nil
}

func (s *amqpSession) setup(exchangeName, queueName string) error {
	err := s.channel.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = s.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := s.channel.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func (s *amqpSession) Publish(ctx context.Context, exchange, key string, msg amqp091.Publishing) error {
	return s.channel.PublishWithContext(ctx, exchange, key, false, false, msg)
}

// IsClosed reports whether the broker or the client has closed either half.
func (s *amqpSession) IsClosed() bool {
	return s.conn.IsClosed() || s.channel.IsClosed()
}

func (s *amqpSession) Close() error {
	s.channel.Close()
	return s.conn.Close()
}

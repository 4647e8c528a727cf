package email

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type channelOpener func() (amqpChannel, io.Closer, error)

// AMQPPublisher enqueues messages for the mailer process instead of talking
// to SMTP in the request path. The connection is opened lazily and reopened
// after a failed publish.
type AMQPPublisher struct {
	queue  string
	open   channelOpener
	logger logger.Logger

	mu   sync.Mutex
	ch   amqpChannel
	conn io.Closer
}

var _ outbound.EmailSender = (*AMQPPublisher)(nil)

func NewAMQPPublisher(url, queue string, log logger.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		queue:  queue,
		logger: log,
		open: func() (amqpChannel, io.Closer, error) {
			conn, err := amqp.Dial(url)
			if err != nil {
				return nil, nil, fmt.Errorf("amqp dial: %w", err)
			}
			ch, err := conn.Channel()
			if err != nil {
				_ = conn.Close()
				return nil, nil, fmt.Errorf("amqp channel: %w", err)
			}
			return ch, conn, nil
		},
	}
}

func (p *AMQPPublisher) Send(ctx context.Context, msg outbound.EmailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
		CorrelationId: logger.CorrelationID(ctx),
		Body:          body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// one retry on a fresh connection covers a broker restart between sends
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		ch, err := p.channel()
		if err != nil {
			lastErr = err
			continue
		}
		if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
			lastErr = fmt.Errorf("amqp publish: %w", err)
			p.logger.Warn(ctx, "Publish failed, resetting connection", map[string]interface{}{
				"queue": p.queue,
				"error": err.Error(),
			})
			p.reset()
			continue
		}
		return nil
	}
	return lastErr
}

// channel returns the open channel, dialing and declaring the queue first if
// needed. Caller holds p.mu.
func (p *AMQPPublisher) channel() (amqpChannel, error) {
	if p.ch != nil {
		return p.ch, nil
	}

	ch, conn, err := p.open()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}

	p.ch, p.conn = ch, conn
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

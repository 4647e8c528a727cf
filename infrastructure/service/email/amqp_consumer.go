package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"

	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

var ErrMalformedMessage = errors.New("malformed email message")

// errSessionEnded marks a broker session that reached the consume loop before
// it stopped. Reconnecting after it starts a fresh backoff sequence.
var errSessionEnded = errors.New("consume session ended")

type ConsumerConfig struct {
	URL      string
	Queue    string
	Prefetch int
	// MinBackoff and MaxBackoff bound the delay between reconnect attempts.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Consumer drains the email queue and hands each message to a sender.
type Consumer struct {
	config  ConsumerConfig
	sender  outbound.EmailSender
	logger  logger.Logger
	session func(ctx context.Context) error
}

func NewConsumer(config ConsumerConfig, sender outbound.EmailSender, log logger.Logger) *Consumer {
	if config.Prefetch <= 0 {
		config.Prefetch = 10
	}
	if config.MinBackoff <= 0 {
		config.MinBackoff = time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}
	c := &Consumer{config: config, sender: sender, logger: log}
	c.session = c.serve
	return c
}

func (c *Consumer) backoff() retry.Backoff {
	return retry.WithCappedDuration(c.config.MaxBackoff, retry.NewExponential(c.config.MinBackoff))
}

// Run consumes until ctx is cancelled, reconnecting with exponential backoff
// whenever the broker connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
			err := c.session(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == nil || errors.Is(err, errSessionEnded) {
				return err
			}
			c.logger.Warn(ctx, "Broker session failed, retrying", map[string]interface{}{
				"error": err.Error(),
			})
			return retry.RetryableError(err)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn(ctx, "Consume loop ended, reconnecting", map[string]interface{}{
			"error": fmt.Sprint(err),
		})
	}
}

func (c *Consumer) serve(ctx context.Context) error {
	conn, err := amqp.Dial(c.config.URL)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return c.consumeConn(ctx, conn)
}

func (c *Consumer) consumeConn(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.config.Prefetch, 0, false); err != nil {
		c.logger.Warn(ctx, "Set QoS failed", map[string]interface{}{"error": err.Error()})
	}
	if _, err := ch.QueueDeclare(c.config.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	deliveries, err := ch.Consume(c.config.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.logger.Info(ctx, "Consuming email queue", map[string]interface{}{"queue": c.config.Queue})
	return c.consume(ctx, deliveries)
}

func (c *Consumer) consume(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: deliveries channel closed", errSessionEnded)
			}
			c.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery acks delivered messages, drops malformed ones and requeues a
// failed send once.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	if d.CorrelationId != "" {
		ctx = logger.WithCorrelationID(ctx, d.CorrelationId)
	}

	msg, err := DecodeMessage(d.Body)
	if err != nil {
		c.logger.Error(ctx, "Dropping malformed email message", err, nil)
		_ = d.Nack(false, false)
		return
	}

	if err := c.sender.Send(ctx, msg); err != nil {
		requeue := !d.Redelivered
		c.logger.Error(ctx, "Email delivery failed", err, map[string]interface{}{
			"to":      msg.To,
			"requeue": requeue,
		})
		_ = d.Nack(false, requeue)
		return
	}

	c.logger.Info(ctx, "Email delivered", map[string]interface{}{"to": msg.To})
	_ = d.Ack(false)
}

// DecodeMessage parses a queued message and checks the required fields.
func DecodeMessage(body []byte) (outbound.EmailMessage, error) {
	var msg outbound.EmailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.To == "" || msg.HTML == "" {
		return msg, fmt.Errorf("%w: missing recipient or body", ErrMalformedMessage)
	}
	return msg, nil
}

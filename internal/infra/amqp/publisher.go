package amqp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const maxDialDelay = 60 * time.Second

// Publisher publishes JSON events to a topic exchange
type Publisher struct {
	conn     *amqp091.Connection
	exchange string
	log      *zap.Logger
}

// DialOptions configures DialWithRetry
type DialOptions struct {
	URL           string
	RetryAttempts int
	Delay         time.Duration
}

// DialWithRetry connects with exponential backoff until attempts run out or ctx is done
func DialWithRetry(ctx context.Context, opts DialOptions, log *zap.Logger) (*amqp091.Connection, error) {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.Delay <= 0 {
		opts.Delay = time.Second
	}

	var lastErr error
	sleep := opts.Delay
	for i := 1; i <= opts.RetryAttempts; i++ {
		conn, err := amqp091.Dial(opts.URL)
		if err == nil {
			if i > 1 {
				log.Info("amqp connected", zap.Int("attempt", i))
			}
			return conn, nil
		}
		lastErr = err
		if i == opts.RetryAttempts {
			break
		}

		log.Warn("amqp dial failed", zap.Int("attempt", i), zap.Duration("sleep", sleep), zap.Error(err))
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dial cancelled: %w", ctx.Err())
		case <-timer.C:
		}
		if sleep *= 2; sleep > maxDialDelay {
			sleep = maxDialDelay
		}
	}
	return nil, fmt.Errorf("failed to connect to amqp after %d attempts: %w", opts.RetryAttempts, lastErr)
}

// NewPublisher declares the exchange and returns a publisher that owns conn
func NewPublisher(conn *amqp091.Connection, exchange string, log *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &Publisher{
		conn:     conn,
		exchange: exchange,
		log:      log.Named("amqp"),
	}, nil
}

// Publish sends one persistent JSON message under key
func (p *Publisher) Publish(ctx context.Context, key string, body []byte) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", key, err)
	}
	p.log.Debug("published", zap.String("key", key), zap.String("exchange", p.exchange))
	return nil
}

// Close closes the connection
func (p *Publisher) Close() error {
	return p.conn.Close()
}

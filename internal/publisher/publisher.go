// Package publisher sends every card check to a durable AMQP queue.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alovak/cardcheck/checks/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/exp/slog"
)

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	conn    io.Closer
	ch      Channel
	queue   string
	timeout time.Duration
	logger  *slog.Logger
}

// Dial connects to the broker, opens one channel and declares queue.
func Dial(logger *slog.Logger, url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening amqp channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring queue %s: %w", queue, err)
	}

	p := New(logger, ch, queue)
	p.conn = conn
	return p, nil
}

// New wraps an already opened channel. The queue must exist.
func New(logger *slog.Logger, ch Channel, queue string) *Publisher {
	return &Publisher{
		ch:      ch,
		queue:   queue,
		timeout: 5 * time.Second,
		logger:  logger.With(slog.String("component", "publisher"), slog.String("queue", queue)),
	}
}

// Record implements checker.Recorder. The body carries the masked number only.
func (p *Publisher) Record(ctx context.Context, check models.Check) error {
	body, err := json.Marshal(check)
	if err != nil {
		return fmt.Errorf("marshaling check: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    check.ID,
			Timestamp:    check.CheckedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing check %s: %w", check.ID, err)
	}

	p.logger.Debug("check published", slog.String("check_id", check.ID))
	return nil
}

func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

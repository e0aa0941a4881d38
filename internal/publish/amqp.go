// Package publish pushes report results to downstream consumers: a RabbitMQ
// queue for "report generated" notifications and Redis for the latest venue
// summaries. Both are sinks; nothing in this module reads them back.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ReportsGeneratedQueue receives one message per rendered venue report.
const ReportsGeneratedQueue = "reports.generated"

// NewRunID returns an identifier shared by everything one run produces.
func NewRunID() string {
	return uuid.NewString()
}

type ReportGenerated struct {
	RunID       string    `json:"run_id"`
	Venue       string    `json:"venue"`
	Title       string    `json:"title"`
	File        string    `json:"file"`
	Events      int       `json:"events"`
	Emailed     bool      `json:"emailed"`
	GeneratedAt time.Time `json:"generated_at"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Notifier publishes persistent JSON messages to a durable queue through
// the default exchange.
type Notifier struct {
	conn   *amqp.Connection
	ch     channel
	queue  string
	logger *slog.Logger
	now    func() time.Time
}

// DialNotifier connects to url and declares queue.
func DialNotifier(url, queue string, logger *slog.Logger) (*Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare %s: %w", queue, err)
	}
	return &Notifier{conn: conn, ch: ch, queue: queue, logger: logger, now: time.Now}, nil
}

// ReportGenerated publishes ev, stamping GeneratedAt when unset.
func (n *Notifier) ReportGenerated(ctx context.Context, ev ReportGenerated) error {
	if ev.GeneratedAt.IsZero() {
		ev.GeneratedAt = n.now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.RunID + ":" + ev.Venue,
		Timestamp:    ev.GeneratedAt,
		Body:         body,
	}
	if err := n.ch.PublishWithContext(ctx, "", n.queue, false, false, pub); err != nil {
		n.logger.ErrorContext(ctx, "rabbitmq publish failed", "queue", n.queue, "venue", ev.Venue, "error", err)
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	n.logger.DebugContext(ctx, "report notification published", "queue", n.queue, "venue", ev.Venue)
	return nil
}

func (n *Notifier) Close() error {
	err := n.ch.Close()
	if n.conn != nil {
		if cerr := n.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

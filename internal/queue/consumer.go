package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is used when no queue name is configured.
const DefaultQueueName = "bid.events"

// ConsumerConfig configures StartBidEventConsumer.
type ConsumerConfig struct {
	URL     string
	Queue   string
	LogDir  string // directory of bid_events.log, defaults to "logs"
	MaxWait time.Duration
}

// StartBidEventConsumer connects to RabbitMQ, declares the durable events
// queue and appends every delivered event to <LogDir>/bid_events.log as a
// single line.  It reconnects with exponential backoff and only returns
// once ctx is cancelled.  Messages that cannot be decoded are rejected
// without requeue so a poison message cannot loop.
func StartBidEventConsumer(ctx context.Context, cfg ConsumerConfig, log logrus.FieldLogger) error {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueueName
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 30 * time.Second
	}
	log = log.WithField("queue", cfg.Queue)

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.WithError(err).Warnf("bid-events consumer: dial failed, retrying in %s", backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < cfg.MaxWait {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, cfg, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("bid-events consumer: consume loop ended, reconnecting")
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, log logrus.FieldLogger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("bid-events consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	path := filepath.Join(cfg.LogDir, "bid_events.log")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(path, d.Body); err != nil {
				log.WithError(err).Error("bid-events consumer: handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(path string, body []byte) error {
	var ev BidEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatEvent(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatEvent renders ev as one newline-terminated log line.  Only the
// identifiers that apply to the event are included.
func FormatEvent(ev BidEvent) string {
	line := fmt.Sprintf("[%s] %s | event_id=%s | bid_id=%d", ev.OccurredAt, ev.Type, ev.ID, ev.BidID)
	if ev.RetailBidID != 0 {
		line += fmt.Sprintf(" | retail_bid_id=%d", ev.RetailBidID)
	}
	if ev.PaymentID != 0 {
		line += fmt.Sprintf(" | payment_id=%d", ev.PaymentID)
	}
	if ev.UserID != 0 {
		line += fmt.Sprintf(" | user_id=%d", ev.UserID)
	}
	if ev.Status != "" {
		line += fmt.Sprintf(" | status=%s", ev.Status)
	}
	if ev.Seats != 0 {
		line += fmt.Sprintf(" | seats=%d", ev.Seats)
	}
	if ev.AmountCents != 0 {
		line += fmt.Sprintf(" | amount=%d cents", ev.AmountCents)
	}
	if ev.PaymentRef != "" {
		line += fmt.Sprintf(" | payment_ref=%s", ev.PaymentRef)
	}
	return line + "\n"
}

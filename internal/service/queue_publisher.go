package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/group-travel-bidding/internal/queue"
)

// EventPublisher delivers bid events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BidEvent) error
}

// publishDialTimeout bounds how long a request waits on an unreachable
// broker.
const publishDialTimeout = 2 * time.Second

// RabbitPublisher publishes events to a durable RabbitMQ queue.  Each
// Publish dials its own connection so a broker outage never leaves a
// broken connection behind.
type RabbitPublisher struct {
	url   string
	queue string
	log   logrus.FieldLogger
}

// NewRabbitPublisher returns a publisher for queueName on the broker at url.
func NewRabbitPublisher(url, queueName string, log logrus.FieldLogger) *RabbitPublisher {
	if queueName == "" {
		queueName = queue.DefaultQueueName
	}
	return &RabbitPublisher{url: url, queue: queueName, log: log}
}

// Publish sends ev as a persistent JSON message.  Missing ID and
// OccurredAt are filled in.  Errors are logged and returned so the caller
// can choose to ignore them.
func (p *RabbitPublisher) Publish(ctx context.Context, ev queue.BidEvent) error {
	ev = stampEvent(ev, time.Now())
	log := p.log.WithFields(logrus.Fields{"event_type": ev.Type, "event_id": ev.ID, "bid_id": ev.BidID})

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(publishDialTimeout),
	})
	if err != nil {
		log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Warn("rabbitmq: marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

func stampEvent(ev queue.BidEvent, now time.Time) queue.BidEvent {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = now.UTC().Format(time.RFC3339)
	}
	return ev
}

// noopPublisher drops every event.
type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, queue.BidEvent) error { return nil }

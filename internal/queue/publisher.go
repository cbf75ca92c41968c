package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers reservation events.  Implementations are safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev ReservationEvent) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ReservationEvent) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

// AMQPPublisher publishes persistent JSON messages to a durable RabbitMQ
// queue through the default exchange.  The connection is opened on first
// use and reopened after the broker closes it.
type AMQPPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration // bounds TCP connect and the AMQP handshake

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url, queue string) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queue, dialTimeout: 2 * time.Second}
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.DialConfig(p.url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(p.dialTimeout),
		})
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: queue declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

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

// KafkaPublisher writes events to a topic keyed by table ID, so events of
// one table stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		// One event per booking; waiting for a fuller batch only adds latency.
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 3 * time.Second,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(ev.TableID, 10)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
			{Key: "id", Value: []byte(ev.ID)},
		},
	})
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// notifyQueue bounds the events waiting for the broker.
const notifyQueue = 256

// Notifier publishes on a best-effort basis off the request path.  Notify
// only queues; a single background worker delivers with a per-event
// timeout.  Failures are logged and never reach the caller.
type Notifier struct {
	pub     Publisher
	log     *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan ReservationEvent
	done   chan struct{}
}

func NewNotifier(pub Publisher, log *slog.Logger) *Notifier {
	if pub == nil {
		pub = NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	n := &Notifier{
		pub:     pub,
		log:     log.With("component", "events"),
		timeout: 3 * time.Second,
		events:  make(chan ReservationEvent, notifyQueue),
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

// Notify queues ev and returns immediately.  ctx is not used for
// delivery, so a client hanging up after commit does not lose the event.
// When the queue is full, or the notifier is closed, ev is dropped.
func (n *Notifier) Notify(_ context.Context, ev ReservationEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.log.Warn("notifier closed, event dropped", "type", ev.Type, "reservation_id", ev.ReservationID)
		return
	}
	select {
	case n.events <- ev:
	default:
		n.log.Warn("event queue full, event dropped", "type", ev.Type, "reservation_id", ev.ReservationID)
	}
}

// Close stops accepting events and waits until the queued ones have been
// attempted.
func (n *Notifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.events)
	}
	n.mu.Unlock()
	<-n.done
}

func (n *Notifier) run() {
	defer close(n.done)
	for ev := range n.events {
		n.publish(ev)
	}
}

func (n *Notifier) publish(ev ReservationEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	if err := n.pub.Publish(ctx, ev); err != nil {
		n.log.Warn("publish failed", "type", ev.Type, "reservation_id", ev.ReservationID, "error", err)
		return
	}
	n.log.Debug("event published", "type", ev.Type, "id", ev.ID)
}

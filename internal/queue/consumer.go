package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

// BookingLog appends one human-readable line per event to a file.
type BookingLog struct {
	path string
	mu   sync.Mutex
}

func NewBookingLog(path string) *BookingLog { return &BookingLog{path: path} }

// FormatLine renders ev as a single log line.
func FormatLine(ev ReservationEvent) string {
	verb := "created"
	if ev.Type == EventReservationDeleted {
		verb = "deleted"
	}
	return fmt.Sprintf("[%s] Reservation %s | reservation_id=%d | table_id=%d | guest=%q | customers=%d | start=%s | end=%s | event_id=%s\n",
		ev.OccurredAt, verb, ev.ReservationID, ev.TableID, ev.MainGuestName, ev.NumberOfCustomers, ev.StartTime, ev.EndTime, ev.ID)
}

// Append decodes body and writes its line.
func (b *BookingLog) Append(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(b.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// RunAMQPConsumer consumes the queue into sink until ctx is done.  It
// reconnects with exponential backoff; a message the sink rejects is
// nacked without requeue so a poison message cannot loop.
func RunAMQPConsumer(ctx context.Context, url, queue string, sink *BookingLog, log *slog.Logger) error {
	log = log.With("component", "booking-consumer", "broker", "rabbitmq")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeAMQP(ctx, conn, queue, sink, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeAMQP(ctx context.Context, conn *amqp.Connection, queue string, sink *BookingLog, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := sink.Append(d.Body); err != nil {
			log.Warn("handle message failed", "error", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// RunKafkaConsumer reads the topic as member of groupID into sink until
// ctx is done.
func RunKafkaConsumer(ctx context.Context, brokers []string, topic, groupID string, sink *BookingLog, log *slog.Logger) error {
	log = log.With("component", "booking-consumer", "broker", "kafka")
	r := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, GroupID: groupID, Topic: topic})
	defer r.Close()
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("read failed", "error", err)
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}
		if err := sink.Append(m.Value); err != nil {
			log.Warn("handle message failed", "error", err, "partition", m.Partition, "offset", m.Offset)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

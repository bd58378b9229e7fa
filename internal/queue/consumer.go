package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/golf-ops/internal/logger"
)

// AuditQueueName is the durable queue that receives every booking and
// audit event for the event log.
const AuditQueueName = "golf.event-log"

// ConsumerConfig configures StartEventLogConsumer.
type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Sink     *logrus.Logger // destination of one JSON line per event
}

// StartEventLogConsumer binds the event-log queue to the exchange and
// appends each delivery to cfg.Sink.  It reconnects with exponential
// backoff and returns only when ctx is cancelled.  Messages that cannot
// be decoded are rejected without requeue so a bad payload cannot stall
// the queue.
func StartEventLogConsumer(ctx context.Context, cfg ConsumerConfig) error {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Queue == "" {
		cfg.Queue = AuditQueueName
	}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			logger.WarnLogger.Warnf("event-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, cfg)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.WarnLogger.Warnf("event-consumer: consume loop ended: %v; reconnecting", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.WarnLogger.Warnf("event-consumer: set QoS failed: %v", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range []string{"booking.#", "audit.#"} {
		if err := ch.QueueBind(cfg.Queue, key, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", key, err)
		}
	}
	msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleDelivery(cfg.Sink, d.RoutingKey, d.Body); err != nil {
				logger.ErrorLogger.Errorf("event-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleDelivery decodes one message body according to its routing key
// and writes it to sink as a structured entry.
func HandleDelivery(sink *logrus.Logger, routingKey string, body []byte) error {
	switch {
	case len(routingKey) > 6 && routingKey[:6] == "audit.":
		var ev AuditEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal audit event: %w", err)
		}
		sink.WithFields(logrus.Fields{
			"event_id":   ev.EventID,
			"kind":       "audit",
			"action":     ev.Entry.Action,
			"actor_id":   ev.Entry.ActorID,
			"actor_role": ev.Entry.ActorRole,
			"entity":     ev.Entry.Entity,
			"entity_id":  ev.Entry.EntityID,
			"from":       ev.Entry.From,
			"to":         ev.Entry.To,
			"detail":     ev.Entry.Detail,
			"at":         ev.OccurredAt,
		}).Info("administrative override")
	case len(routingKey) > 8 && routingKey[:8] == "booking.":
		var ev BookingEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal booking event: %w", err)
		}
		sink.WithFields(logrus.Fields{
			"event_id":   ev.EventID,
			"kind":       "booking",
			"action":     ev.Action,
			"booking_id": ev.BookingID,
			"owner_id":   ev.OwnerID,
			"actor_id":   ev.ActorID,
			"status":     ev.Status,
			"date":       ev.Date,
			"time_slot":  ev.TimeSlot,
			"caddies":    ev.CaddyIDs,
			"carts":      ev.GolfCartIDs,
			"bags":       ev.GolfBagIDs,
			"at":         ev.OccurredAt,
		}).Info("booking lifecycle")
	default:
		return fmt.Errorf("unexpected routing key %q", routingKey)
	}
	return nil
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

// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Event types.
const (
	AppointmentBooked  = "appointment.booked"
	AppointmentExpired = "appointment.expired"
	PaymentPaid        = "payment.paid"
)

// Event is a domain fact keyed by the aggregate it concerns.
type Event struct {
	Type        string      `json:"type"`
	AggregateID string      `json:"aggregateId"`
	OccurredAt  time.Time   `json:"occurredAt"`
	Payload     interface{} `json:"payload,omitempty"`
}

// New stamps an event with the current UTC time.
func New(eventType, aggregateID string, payload interface{}) Event {
	return Event{Type: eventType, AggregateID: aggregateID, OccurredAt: time.Now().UTC(), Payload: payload}
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Producer publishes events to a single Kafka topic.
type Producer struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

// NewPublisher returns a Kafka producer, or a no-op publisher when no brokers are configured.
func NewPublisher(brokers []string, topic string, log zerolog.Logger) Publisher {
	if len(brokers) == 0 {
		log.Warn().Msg("KAFKA_BROKERS not set, domain events are disabled")
		return Noop{}
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	log.Info().Str("topic", topic).Msg("kafka producer created")
	return &Producer{writer: writer, log: log}
}

// Publish writes evt keyed by its aggregate id so events of one aggregate stay ordered.
func (p *Producer) Publish(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}

	p.log.Debug().Str("type", evt.Type).Str("key", evt.AggregateID).Msg("event published")
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Emit publishes evt and logs a failure instead of returning it.
func Emit(ctx context.Context, pub Publisher, log zerolog.Logger, evt Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, evt); err != nil {
		log.Error().Err(err).Str("type", evt.Type).Str("aggregateId", evt.AggregateID).Msg("failed to publish event")
	}
}

// Package events publishes enrollment lifecycle events for downstream
// consumers such as receipts and analytics.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"storefront/backend/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	TypeEnrollmentCreated   = "enrollment.created"
	TypeEnrollmentCompleted = "enrollment.completed"
)

type Event struct {
	ID               string               `json:"event_id"`
	Type             string               `json:"type"`
	EnrollmentID     uint                 `json:"enrollment_id"`
	UserID           uint                 `json:"user_id"`
	CourseID         uint                 `json:"course_id"`
	PaymentStatus    models.PaymentStatus `json:"payment_status"`
	PaymentReference string               `json:"payment_reference,omitempty"`
	Amount           *decimal.Decimal     `json:"amount,omitempty"`
	OccurredAt       time.Time            `json:"occurred_at"`
}

// FromEnrollment builds an event describing the enrollment's current state.
func FromEnrollment(eventType string, e models.Enrollment, at time.Time) Event {
	ev := Event{
		ID:               uuid.NewString(),
		Type:             eventType,
		EnrollmentID:     e.ID,
		UserID:           e.UserID,
		CourseID:         e.CourseID,
		PaymentStatus:    e.PaymentStatus,
		PaymentReference: e.PaymentReference,
		OccurredAt:       at.UTC(),
	}
	if e.AmountPaid.Valid {
		amount := e.AmountPaid.Decimal
		ev.Amount = &amount
	}
	return ev
}

// Key partitions events by user so one user's events stay ordered.
func (e Event) Key() string {
	return strconv.FormatUint(uint64(e.UserID), 10)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop drops every event; used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

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
	}}
}

// New returns a Kafka publisher, or Noop when brokers is empty.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return Noop{}
	}
	return NewKafkaPublisher(brokers, topic)
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.Type, err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key()),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

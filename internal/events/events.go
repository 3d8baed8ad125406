// Package events announces committed receptions to other systems.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"fieldservice/internal/core"
)

// TypeReceptionCommitted is the event type of ReceptionCommitted.
const TypeReceptionCommitted = "reception.committed"

// ReceptionCommitted is emitted after a reception commit wrote at least one line.
type ReceptionCommitted struct {
	Type          string               `json:"type"`
	OrderID       int                  `json:"order_id"`
	OrderCode     string               `json:"order_code"`
	Status        core.ReceptionStatus `json:"status"`
	FullyReceived bool                 `json:"fully_received"`
	Operator      core.Operator        `json:"operator"`
	Lines         []core.LineOutcome   `json:"lines"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// NewReceptionCommitted builds the event for a commit result.
func NewReceptionCommitted(op core.Operator, res *core.ReceptionResult, at time.Time) ReceptionCommitted {
	return ReceptionCommitted{
		Type:          TypeReceptionCommitted,
		OrderID:       res.OrderID,
		OrderCode:     res.OrderCode,
		Status:        res.Status,
		FullyReceived: res.FullyReceived,
		Operator:      op,
		Lines:         res.Outcomes,
		OccurredAt:    at.UTC(),
	}
}

// Publisher sends domain events.
type Publisher interface {
	PublishReception(ctx context.Context, ev ReceptionCommitted) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewPublisher returns a Kafka publisher, or a log publisher when no broker is configured.
func NewPublisher(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		log.Println("events: KAFKA_BROKERS not set, events are logged only")
		return LogPublisher{}
	}
	log.Printf("events: Kafka producer on %v, topic %s", brokers, topic)
	return &kafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}}
}

// receptionMessage keys the message by order id. The writer's Hash balancer maps
// a key to a fixed partition, so the events of one order are consumed in order.
func receptionMessage(ev ReceptionCommitted) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return kafka.Message{
		Key:   []byte(strconv.Itoa(ev.OrderID)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}, nil
}

func (p *kafkaPublisher) PublishReception(ctx context.Context, ev ReceptionCommitted) error {
	msg, err := receptionMessage(ev)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for %s: %w", ev.Type, ev.OrderCode, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher writes events to the standard logger.
type LogPublisher struct{}

func (LogPublisher) PublishReception(_ context.Context, ev ReceptionCommitted) error {
	log.Printf("event %s: order=%s status=%s fully_received=%t lines=%d",
		ev.Type, ev.OrderCode, ev.Status, ev.FullyReceived, len(ev.Lines))
	return nil
}

func (LogPublisher) Close() error { return nil }

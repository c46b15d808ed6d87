package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"hrperf/internal/requestctx"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	TenantID   string    `json:"tenantId"`
	EntityID   string    `json:"entityId"`
	RequestID  string    `json:"requestId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload,omitempty"`
}

func NewEvent(eventType, tenantID, entityID string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TenantID:   tenantID,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }
func (noopPublisher) Close() error                         { return nil }

func NewNoop() Publisher {
	return noopPublisher{}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
	topic  string
}

// New returns a kafka publisher, or a noop publisher when no brokers are configured.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NewNoop()
	}
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.RequestID == "" {
		event.RequestID = requestctx.RequestID(ctx)
	}
	msg, err := message(p.topic, event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// message keys by tenant so one tenant's events stay ordered on a partition.
func message(topic string, event Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	headers := []kafka.Header{{Key: "event-type", Value: []byte(event.Type)}}
	if event.RequestID != "" {
		headers = append(headers, kafka.Header{Key: "request-id", Value: []byte(event.RequestID)})
	}
	return kafka.Message{
		Topic:   topic,
		Key:     []byte(event.TenantID),
		Value:   payload,
		Headers: headers,
	}, nil
}

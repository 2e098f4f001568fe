package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/godilite/ticket-triage/internal/service"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes triaged tickets to a Kafka topic, keyed by record ID.
// Routing metadata is duplicated into headers so consumers can filter without
// decoding the value.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaPublisher(w, topic, logger)
}

func newKafkaPublisher(w messageWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, topic: topic, logger: logger.Named("publisher")}
}

// Publish implements service.TicketPublisher.
func (p *KafkaPublisher) Publish(ctx context.Context, rec service.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Time:  rec.CreatedAt,
		Headers: []kafka.Header{
			{Key: "urgency", Value: []byte(rec.Ticket.Urgency)},
			{Key: "sentiment", Value: []byte(rec.Ticket.Sentiment)},
			{Key: "next_action", Value: []byte(rec.Ticket.NextAction)},
			{Key: "path", Value: []byte(rec.Path)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", p.topic, err)
	}

	p.logger.Debug("ticket published", zap.String("id", rec.ID), zap.String("topic", p.topic))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

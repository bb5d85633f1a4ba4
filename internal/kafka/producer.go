package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"

	"github.com/segmentio/kafka-go"
)

// Writer is satisfied by *kafka.Writer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer Writer
	topic  string
	logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return NewProducerWithWriter(writer, topic, log)
}

func NewProducerWithWriter(w Writer, topic string, log *logger.Logger) *Producer {
	return &Producer{Writer: w, topic: topic, logger: log}
}

// PublishRegistrationCompleted streams the persisted registration, keyed by
// payment id so redeliveries land on the same partition.
func (p *Producer) PublishRegistrationCompleted(ctx context.Context, ev models.RegistrationEvent) error {
	msgBytes, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	key := ev.PaymentIntentID
	if key == "" {
		key = ev.EventID
	}

	p.logger.Debug("KAFKA", fmt.Sprintf("Publishing to Kafka [%s]: %s", p.topic, string(msgBytes)))

	return p.Writer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(key),
			Value: msgBytes,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte("registration.completed")},
			},
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

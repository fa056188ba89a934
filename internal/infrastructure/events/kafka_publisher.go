package events

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/service"
	"homelink/pkg/errors"
)

const headerEventType = "event-type"

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return newKafkaPublisher(producer, topic), nil
}

func newKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish keys records by conversation so one conversation's events stay
// ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event entity.MessageEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Internal("Failed to encode message event", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.ConversationID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerEventType), Value: []byte(event.Type)},
		},
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return errors.StoreUnavailable("Failed to publish message event", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

var _ service.EventPublisher = (*KafkaPublisher)(nil)

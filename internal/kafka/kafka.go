// Package kafka публикует события товаров и импортирует товары из Kafka.
package kafka

import (
	"context"

	"github.com/RoGogDBD/items/internal/models"
	"github.com/segmentio/kafka-go"
)

// Заголовки сообщений.
const (
	HeaderEventType    = "x-event-type"
	HeaderError        = "x-error"
	HeaderSourceTopic  = "x-source-topic"
	HeaderSourceOffset = "x-source-offset"
)

// MessageWriter подмножество *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageReader подмножество *kafka.Reader с ручной фиксацией смещений.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventPublisher принимает события после успешной записи в хранилище.
type EventPublisher interface {
	Publish(ctx context.Context, event models.ItemEvent)
}

// NewWriter создает writer для топика. Ключ сообщения определяет партицию.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// NewReader создает reader группы потребителей.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
}

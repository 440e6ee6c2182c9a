package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/RoGogDBD/items/internal/models"
	"github.com/RoGogDBD/items/internal/retry"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

const drainTimeout = 5 * time.Second

// Publisher асинхронно отправляет события товаров через ограниченный буфер.
type Publisher struct {
	writer MessageWriter
	events chan models.ItemEvent
	policy retry.Policy
}

func NewPublisher(writer MessageWriter, buffer int, policy retry.Policy) *Publisher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Publisher{
		writer: writer,
		events: make(chan models.ItemEvent, buffer),
		policy: policy,
	}
}

// Publish не блокирует: при заполненном буфере событие отбрасывается.
func (p *Publisher) Publish(_ context.Context, event models.ItemEvent) {
	select {
	case p.events <- event:
	default:
		log.WithFields(log.Fields{
			"event":   event.Type,
			"item_id": event.ItemID,
		}).Warn("event buffer is full, dropping event")
	}
}

// Run отправляет события до отмены ctx, затем дописывает остаток буфера и закрывает writer.
func (p *Publisher) Run(ctx context.Context) {
	defer func() {
		if err := p.writer.Close(); err != nil {
			log.Errorf("kafka writer close error: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case event := <-p.events:
			p.write(ctx, event)
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case event := <-p.events:
			p.write(ctx, event)
		default:
			return
		}
	}
}

func (p *Publisher) write(ctx context.Context, event models.ItemEvent) {
	entry := log.WithFields(log.Fields{"event": event.Type, "item_id": event.ItemID})

	payload, err := json.Marshal(event)
	if err != nil {
		entry.Errorf("failed to marshal event: %v", err)
		return
	}
	msg := kafka.Message{
		Key:     []byte(event.ItemID.String()),
		Value:   payload,
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte(event.Type)}},
		Time:    event.OccurredAt,
	}

	policy := p.policy
	policy.OnRetry = func(err error, attempt int, wait time.Duration) {
		entry.Warnf("publish failed: %v (attempt %d/%d). Retrying in %v...", err, attempt, policy.MaxRetries, wait)
	}
	if err := retry.Do(ctx, policy, func(ctx context.Context) error {
		return p.writer.WriteMessages(ctx, msg)
	}); err != nil {
		entry.Errorf("failed to publish event: %v", err)
		return
	}
	entry.Debug("event published")
}

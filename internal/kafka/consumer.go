package kafka

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/RoGogDBD/items/internal/models"
	"github.com/RoGogDBD/items/internal/repository"
	"github.com/RoGogDBD/items/internal/retry"
	"github.com/RoGogDBD/items/internal/validation"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// Importer читает сообщения {name, description, price} и сохраняет их как товары.
// Отклоненные и несохраненные сообщения уходят в DLQ.
type Importer struct {
	reader   MessageReader
	dlq      MessageWriter
	store    repository.ItemStore
	events   EventPublisher
	validate *validation.Validator
	policy   retry.Policy
}

// NewImporter создает импортер; dlq и events могут быть nil.
func NewImporter(reader MessageReader, dlq MessageWriter, store repository.ItemStore, events EventPublisher, policy retry.Policy) *Importer {
	return &Importer{
		reader:   reader,
		dlq:      dlq,
		store:    store,
		events:   events,
		validate: validation.New(),
		policy:   policy,
	}
}

// Run обрабатывает сообщения до отмены ctx или ошибки чтения.
func (im *Importer) Run(ctx context.Context) {
	defer im.close()

	for {
		m, err := im.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Errorf("kafka read error: %v", err)
			}
			return
		}

		im.handle(ctx, m)

		if err := im.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			log.Errorf("kafka commit error at offset %d: %v", m.Offset, err)
		}
	}
}

func (im *Importer) handle(ctx context.Context, m kafka.Message) {
	entry := log.WithFields(log.Fields{"topic": m.Topic, "offset": m.Offset})

	candidate, err := im.validate.ParseItem(m.Value)
	if err != nil {
		entry.Warnf("validation failed for imported item: %v", err)
		im.deadLetter(ctx, m, err)
		return
	}

	policy := im.policy
	policy.OnRetry = func(err error, attempt int, wait time.Duration) {
		entry.Warnf("Retriable error: %v (attempt %d/%d). Retrying in %v...", err, attempt, policy.MaxRetries, wait)
	}

	var item models.Item
	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		var err error
		item, err = im.store.Insert(ctx, candidate)
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		entry.Errorf("failed to save imported item: %v", err)
		im.deadLetter(ctx, m, err)
		return
	}

	if im.events != nil {
		im.events.Publish(ctx, models.NewCreatedEvent(item))
	}
	entry.Infof("successfully imported item %s", item.ID)
}

func (im *Importer) deadLetter(ctx context.Context, m kafka.Message, cause error) {
	if im.dlq == nil {
		return
	}
	msg := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: append(append([]kafka.Header(nil), m.Headers...),
			kafka.Header{Key: HeaderError, Value: []byte(cause.Error())},
			kafka.Header{Key: HeaderSourceTopic, Value: []byte(m.Topic)},
			kafka.Header{Key: HeaderSourceOffset, Value: []byte(strconv.FormatInt(m.Offset, 10))},
		),
	}
	if err := im.dlq.WriteMessages(ctx, msg); err != nil {
		log.Errorf("failed to write message at offset %d to DLQ: %v", m.Offset, err)
	}
}

func (im *Importer) close() {
	if err := im.reader.Close(); err != nil {
		log.Errorf("kafka reader close error: %v", err)
	}
	if im.dlq != nil {
		if err := im.dlq.Close(); err != nil {
			log.Errorf("kafka DLQ writer close error: %v", err)
		}
	}
}

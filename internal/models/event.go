package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType тип события жизненного цикла товара.
type EventType string

const (
	EventItemCreated EventType = "item.created"
	EventItemDeleted EventType = "item.deleted"
)

// ItemEvent публикуется после успешного создания или удаления товара.
type ItemEvent struct {
	Type       EventType `json:"type"`
	ItemID     uuid.UUID `json:"itemId"`
	Item       *Item     `json:"item,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewCreatedEvent собирает событие item.created.
func NewCreatedEvent(item Item) ItemEvent {
	return ItemEvent{
		Type:       EventItemCreated,
		ItemID:     item.ID,
		Item:       &item,
		OccurredAt: time.Now().UTC(),
	}
}

// NewDeletedEvent собирает событие item.deleted.
func NewDeletedEvent(id uuid.UUID) ItemEvent {
	return ItemEvent{
		Type:       EventItemDeleted,
		ItemID:     id,
		OccurredAt: time.Now().UTC(),
	}
}

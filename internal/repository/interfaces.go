package repository

import (
	"context"
	"time"

	"github.com/RoGogDBD/items/internal/models"
	"github.com/google/uuid"
)

// ItemStore описывает операции хранилища товаров.
type ItemStore interface {
	// List возвращает все товары в порядке создания; пустая таблица дает пустой срез.
	List(ctx context.Context) ([]models.Item, error)
	// Get возвращает ErrNotFound, если строки нет.
	Get(ctx context.Context, id uuid.UUID) (models.Item, error)
	// Insert назначает идентификатор и метки времени и возвращает сохраненную строку.
	Insert(ctx context.Context, item models.NewItem) (models.Item, error)
	// Delete сообщает, была ли удалена строка. Отсутствие строки ошибкой не считается.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Ping(ctx context.Context) error
}

// CacheReader описывает чтение товаров из кеша.
type CacheReader interface {
	GetByID(id uuid.UUID) (models.Item, bool)
}

// CacheWriter описывает запись товаров в кеш.
type CacheWriter interface {
	Save(item models.Item)
	Remove(id uuid.UUID)
}

// Cache описывает операции кеша для товаров.
type Cache interface {
	CacheReader
	CacheWriter
	StartJanitor(ctx context.Context, interval time.Duration)
}

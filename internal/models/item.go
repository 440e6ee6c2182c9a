// Package models содержит доменные модели приложения.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item описывает товар, сохраненный в таблице items.
type Item struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// NewItem описывает проверенного кандидата на создание товара.
// Идентификатор и метки времени назначает хранилище.
type NewItem struct {
	Name        string
	Description string
	Price       decimal.Decimal
}

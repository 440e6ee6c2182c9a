package mocks

import (
	"context"
	"time"

	"github.com/RoGogDBD/items/internal/models"
	"github.com/google/uuid"
)

type CacheMock struct {
	SaveFunc          func(item models.Item)
	GetByIDFunc       func(id uuid.UUID) (models.Item, bool)
	RemoveFunc        func(id uuid.UUID)
	StartJanitorFunc  func(ctx context.Context, interval time.Duration)
	SaveCalls         int
	GetByIDCalls      int
	RemoveCalls       int
	StartJanitorCalls int
}

func (m *CacheMock) Save(item models.Item) {
	m.SaveCalls++
	if m.SaveFunc != nil {
		m.SaveFunc(item)
	}
}

func (m *CacheMock) GetByID(id uuid.UUID) (models.Item, bool) {
	m.GetByIDCalls++
	if m.GetByIDFunc == nil {
		return models.Item{}, false
	}
	return m.GetByIDFunc(id)
}

func (m *CacheMock) Remove(id uuid.UUID) {
	m.RemoveCalls++
	if m.RemoveFunc != nil {
		m.RemoveFunc(id)
	}
}

func (m *CacheMock) StartJanitor(ctx context.Context, interval time.Duration) {
	m.StartJanitorCalls++
	if m.StartJanitorFunc != nil {
		m.StartJanitorFunc(ctx, interval)
	}
}

package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/RoGogDBD/items/internal/models"
	"github.com/google/uuid"
)

type ItemStoreMock struct {
	ListFunc   func(ctx context.Context) ([]models.Item, error)
	GetFunc    func(ctx context.Context, id uuid.UUID) (models.Item, error)
	InsertFunc func(ctx context.Context, item models.NewItem) (models.Item, error)
	DeleteFunc func(ctx context.Context, id uuid.UUID) (bool, error)
	PingFunc   func(ctx context.Context) error

	mu          sync.Mutex
	ListCalls   int
	GetCalls    int
	InsertCalls int
	DeleteCalls int
}

func (m *ItemStoreMock) List(ctx context.Context) ([]models.Item, error) {
	m.count(&m.ListCalls)
	if m.ListFunc == nil {
		return nil, errors.New("ListFunc not set")
	}
	return m.ListFunc(ctx)
}

func (m *ItemStoreMock) Get(ctx context.Context, id uuid.UUID) (models.Item, error) {
	m.count(&m.GetCalls)
	if m.GetFunc == nil {
		return models.Item{}, errors.New("GetFunc not set")
	}
	return m.GetFunc(ctx, id)
}

func (m *ItemStoreMock) Insert(ctx context.Context, item models.NewItem) (models.Item, error) {
	m.count(&m.InsertCalls)
	if m.InsertFunc == nil {
		return models.Item{}, errors.New("InsertFunc not set")
	}
	return m.InsertFunc(ctx, item)
}

func (m *ItemStoreMock) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	m.count(&m.DeleteCalls)
	if m.DeleteFunc == nil {
		return false, errors.New("DeleteFunc not set")
	}
	return m.DeleteFunc(ctx, id)
}

func (m *ItemStoreMock) Ping(ctx context.Context) error {
	if m.PingFunc == nil {
		return nil
	}
	return m.PingFunc(ctx)
}

func (m *ItemStoreMock) count(c *int) {
	m.mu.Lock()
	*c++
	m.mu.Unlock()
}

package repository

import (
	"context"
	"sync"

	"github.com/RoGogDBD/items/internal/models"
	"github.com/google/uuid"
)

// CachedStore читает товары по идентификатору через кеш. List всегда идет в хранилище.
//
// Строка, прочитанная из хранилища, попадает в кеш только если с момента начала чтения
// не стартовало и не завершилось ни одно удаление. Иначе Get, прочитавший строку до
// Delete, вернул бы ее в кеш уже после удаления.
type CachedStore struct {
	ItemStore
	cache Cache

	mu      sync.Mutex
	deletes uint64
}

func NewCachedStore(store ItemStore, cache Cache) *CachedStore {
	return &CachedStore{ItemStore: store, cache: cache}
}

func (s *CachedStore) Get(ctx context.Context, id uuid.UUID) (models.Item, error) {
	if it, ok := s.cache.GetByID(id); ok {
		return it, nil
	}
	epoch := s.epoch()
	it, err := s.ItemStore.Get(ctx, id)
	if err != nil {
		return models.Item{}, err
	}
	s.saveIfCurrent(epoch, it)
	return it, nil
}

func (s *CachedStore) Insert(ctx context.Context, n models.NewItem) (models.Item, error) {
	epoch := s.epoch()
	it, err := s.ItemStore.Insert(ctx, n)
	if err != nil {
		return models.Item{}, err
	}
	s.saveIfCurrent(epoch, it)
	return it, nil
}

func (s *CachedStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s.invalidate(id)
	deleted, err := s.ItemStore.Delete(ctx, id)
	s.invalidate(id)
	return deleted, err
}

func (s *CachedStore) epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes
}

func (s *CachedStore) saveIfCurrent(epoch uint64, it models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deletes != epoch {
		return
	}
	s.cache.Save(it)
}

func (s *CachedStore) invalidate(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	s.cache.Remove(id)
}

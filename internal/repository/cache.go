package repository

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/RoGogDBD/items/internal/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type (
	// MemCache LRU-кеш товаров по идентификатору с опциональным TTL.
	MemCache struct {
		items    map[uuid.UUID]*list.Element
		lruList  *list.List
		mu       sync.Mutex
		maxItems int
		ttl      time.Duration
		now      func() time.Time
	}

	cacheEntry struct {
		key       uuid.UUID
		item      models.Item
		expiresAt time.Time
	}
)

func NewMemCache() *MemCache {
	return NewMemCacheWithConfig(1000, 0)
}

// NewMemCacheWithConfig создает кеш на maxItems записей; ttl == 0 отключает истечение.
func NewMemCacheWithConfig(maxItems int, ttl time.Duration) *MemCache {
	if maxItems <= 0 {
		maxItems = 1
	}
	return &MemCache{
		items:    make(map[uuid.UUID]*list.Element),
		lruList:  list.New(),
		maxItems: maxItems,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemCache) Save(item models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, exists := s.items[item.ID]; exists {
		s.lruList.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.item = item
		entry.expiresAt = s.expiry()
		return
	}

	if s.lruList.Len() >= s.maxItems {
		s.evictOldest()
	}

	elem := s.lruList.PushFront(&cacheEntry{
		key:       item.ID,
		item:      item,
		expiresAt: s.expiry(),
	})
	s.items[item.ID] = elem
}

func (s *MemCache) GetByID(id uuid.UUID) (models.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, exists := s.items[id]
	if !exists {
		return models.Item{}, false
	}
	entry := elem.Value.(*cacheEntry)
	if s.expired(entry) {
		s.removeElement(elem)
		return models.Item{}, false
	}

	// Перемещаем в начало (использован недавно)
	s.lruList.MoveToFront(elem)
	return entry.item, true
}

func (s *MemCache) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, exists := s.items[id]; exists {
		s.removeElement(elem)
	}
}

// StartJanitor периодически удаляет просроченные записи до отмены ctx.
func (s *MemCache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.evictExpired(); n > 0 {
					log.Debugf("cache janitor evicted %d expired items", n)
				}
			}
		}
	}()
}

func (s *MemCache) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lruList.Len()
}

func (s *MemCache) evictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for elem := s.lruList.Back(); elem != nil; {
		prev := elem.Prev()
		if s.expired(elem.Value.(*cacheEntry)) {
			s.removeElement(elem)
			evicted++
		}
		elem = prev
	}
	return evicted
}

func (s *MemCache) evictOldest() {
	if elem := s.lruList.Back(); elem != nil {
		s.removeElement(elem)
	}
}

func (s *MemCache) removeElement(elem *list.Element) {
	s.lruList.Remove(elem)
	delete(s.items, elem.Value.(*cacheEntry).key)
}

func (s *MemCache) expiry() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(s.ttl)
}

func (s *MemCache) expired(e *cacheEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

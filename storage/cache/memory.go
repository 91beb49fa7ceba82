package cache

import (
	"context"
	"sync"
	"time"
)

type memItem struct {
	val     []byte
	expires time.Time // zero: never
}

type memoryStore struct {
	mu      sync.Mutex
	items   map[string]memItem
	nowFunc func() time.Time
}

var _ Store = (*memoryStore)(nil)

// NewMemoryStore returns a Store living in the process memory. Expired keys are dropped lazily.
func NewMemoryStore(nowFunc ...func() time.Time) Store {
	now := time.Now
	if len(nowFunc) > 0 && nowFunc[0] != nil {
		now = nowFunc[0]
	}
	return &memoryStore{items: make(map[string]memItem), nowFunc: now}
}

// get must be called with s.mu held.
func (s *memoryStore) get(key string) (memItem, bool) {
	it, ok := s.items[key]
	if !ok {
		return memItem{}, false
	}
	if !it.expires.IsZero() && !s.nowFunc().Before(it.expires) {
		delete(s.items, key)
		return memItem{}, false
	}
	return it, true
}

func (s *memoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.nowFunc().Add(ttl)
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.get(key)
	if !ok {
		return nil, ErrMiss
	}
	return append([]byte(nil), it.val...), nil
}

func (s *memoryStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = memItem{val: append([]byte(nil), val...), expires: s.expiry(ttl)}
	return nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, val []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.get(key); ok {
		return false, nil
	}
	s.items[key] = memItem{val: append([]byte(nil), val...), expires: s.expiry(ttl)}
	return true, nil
}

func (s *memoryStore) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.get(key)
	if !ok {
		return false, nil
	}
	it.expires = s.expiry(ttl)
	s.items[key] = it
	return true, nil
}

func (s *memoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.get(key)
	if !ok {
		return 0, ErrMiss
	}
	if it.expires.IsZero() {
		return 0, nil
	}
	return it.expires.Sub(s.nowFunc()), nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }

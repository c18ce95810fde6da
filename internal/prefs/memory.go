package prefs

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used when Redis is unavailable and in
// tests. Watchers are notified synchronously.
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string]map[string]string
	watchers map[int]func(Change)
	nextID   int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:   make(map[string]map[string]string),
		watchers: make(map[int]func(Change)),
	}
}

func (s *MemoryStore) Get(ctx context.Context, profile, key string) (string, bool, error) {
	if err := validKey(profile, key); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[profile][key]
	return value, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, profile, key, value string) error {
	if err := validKey(profile, key); err != nil {
		return err
	}
	s.mu.Lock()
	if s.values[profile] == nil {
		s.values[profile] = make(map[string]string)
	}
	s.values[profile][key] = value
	s.mu.Unlock()
	s.notify(Change{Profile: profile, Key: key})
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, profile, key string) error {
	if err := validKey(profile, key); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.values[profile], key)
	s.mu.Unlock()
	s.notify(Change{Profile: profile, Key: key})
	return nil
}

func (s *MemoryStore) Scan(ctx context.Context, key string, fn func(profile, value string) error) error {
	s.mu.RLock()
	type entry struct{ profile, value string }
	var found []entry
	for profile, values := range s.values {
		if value, ok := values[key]; ok {
			found = append(found, entry{profile, value})
		}
	}
	s.mu.RUnlock()
	for _, e := range found {
		if err := fn(e.profile, e.value); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Watch(ctx context.Context, fn func(Change)) (<-chan struct{}, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()
	done := make(chan struct{})
	context.AfterFunc(ctx, func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
		close(done)
	})
	return done, nil
}

func (s *MemoryStore) notify(change Change) {
	s.mu.RLock()
	fns := make([]func(Change), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(change)
	}
}

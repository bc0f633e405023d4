// Package memory is the single-instance flow store. Snapshots live in
// process memory and are swept by a Janitor once expired.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/edumarket/storefront/internal/domain"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

type FlowStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	flows map[string]entry
	locks map[string]struct{}
}

func NewFlowStore(ttl time.Duration) *FlowStore {
	return &FlowStore{
		ttl:   ttl,
		now:   time.Now,
		flows: make(map[string]entry),
		locks: make(map[string]struct{}),
	}
}

func (s *FlowStore) Save(_ context.Context, key string, snapshot []byte) error {
	data := make([]byte, len(snapshot))
	copy(data, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[key] = entry{data: data, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *FlowStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.flows[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, domain.ErrFlowNotFound
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

func (s *FlowStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, key)
	return nil
}

func (s *FlowStore) Lock(_ context.Context, key string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.locks[key]; held {
		return nil, domain.ErrFlowBusy
	}
	s.locks[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.locks, key)
		})
	}, nil
}

// Sweep drops expired snapshots and returns how many it removed.
func (s *FlowStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, e := range s.flows {
		if !now.Before(e.expiresAt) {
			delete(s.flows, key)
			removed++
		}
	}
	return removed
}

func (s *FlowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}

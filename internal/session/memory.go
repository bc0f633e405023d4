package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the token for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Token(_ context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *MemoryStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) ClearTokens(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// MemoryNavigator tracks a current path for clients without a browser.
// OnNavigate, when set, is called for every navigation.
type MemoryNavigator struct {
	mu         sync.Mutex
	path       string
	OnNavigate func(path string)
}

func NewMemoryNavigator(path string) *MemoryNavigator {
	return &MemoryNavigator{path: path}
}

func (n *MemoryNavigator) CurrentPath(_ context.Context) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *MemoryNavigator) Navigate(_ context.Context, path string) {
	n.mu.Lock()
	n.path = path
	hook := n.OnNavigate
	n.mu.Unlock()

	if hook != nil {
		hook(path)
	}
}

// SetPath records a move that did not come from the API client.
func (n *MemoryNavigator) SetPath(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = path
}

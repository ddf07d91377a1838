package memory

import (
	"context"
	"sync"

	"github.com/aretw0/umlpreview/pkg/domain"
)

// FactStore implements ports.FactStore in memory. Its lifetime is the
// lifetime of the owning render session.
// Safe for concurrent use.
type FactStore struct {
	data map[string]domain.Support
	mu   sync.RWMutex
}

// NewFactStore creates a new in-memory fact store.
func NewFactStore() *FactStore {
	return &FactStore{
		data: make(map[string]domain.Support),
	}
}

// Load returns the fact known for address.
func (s *FactStore) Load(ctx context.Context, address string) (domain.Support, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[address], nil
}

// Settle records fact unless address already has one.
func (s *FactStore) Settle(ctx context.Context, address string, fact domain.Support) (domain.Support, error) {
	if fact == domain.SupportUnknown {
		return s.Load(ctx, address)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if known, ok := s.data[address]; ok && known != domain.SupportUnknown {
		return known, nil
	}
	s.data[address] = fact
	return fact, nil
}

// Snapshot returns a copy of all known facts.
func (s *FactStore) Snapshot() map[string]domain.Support {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.Support, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

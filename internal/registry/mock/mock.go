// Package mock provides a mock implementation of the identity registry for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/registry"
)

// Registry is an in-memory registry.Registry with error injection.
type Registry struct {
	mu         sync.RWMutex
	identities map[int]registry.Identity

	// Error injection
	LoadAllError  error
	NextIDError   error
	RegisterError error

	// Call counters
	LoadAllCalls  int
	RegisterCalls int
}

// NewRegistry creates a mock registry seeded with identities.
func NewRegistry(identities ...registry.Identity) *Registry {
	m := &Registry{identities: make(map[int]registry.Identity)}
	for _, identity := range identities {
		m.identities[identity.ID] = identity
	}
	return m
}

// LoadAll returns a copy of the stored identities.
func (m *Registry) LoadAll(ctx context.Context) (map[int]registry.Identity, error) {
	m.mu.Lock()
	m.LoadAllCalls++
	m.mu.Unlock()
	if m.LoadAllError != nil {
		return nil, m.LoadAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int]registry.Identity, len(m.identities))
	for id, identity := range m.identities {
		out[id] = identity
	}
	return out, nil
}

// NextID returns max(id)+1.
func (m *Registry) NextID(ctx context.Context) (int, error) {
	if m.NextIDError != nil {
		return 0, m.NextIDError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return registry.NextIDFrom(m.identities), nil
}

// Register stores identity, enforcing the uniqueness invariant.
func (m *Registry) Register(ctx context.Context, identity registry.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RegisterCalls++
	if m.RegisterError != nil {
		return m.RegisterError
	}
	if err := identity.Validate(); err != nil {
		return err
	}
	if _, exists := m.identities[identity.ID]; exists {
		return fmt.Errorf("%w: id %d", registry.ErrDuplicateIdentity, identity.ID)
	}
	m.identities[identity.ID] = identity
	return nil
}

// Remove deletes an identity out of band, simulating administrative cleanup.
func (m *Registry) Remove(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.identities, id)
}

// Len returns the number of stored identities.
func (m *Registry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities)
}

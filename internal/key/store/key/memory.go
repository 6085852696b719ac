package key

import (
	"context"
	"sync"

	"domopass/internal/key/models"
	id "domopass/pkg/domain"
	"domopass/pkg/platform/sentinel"
)

// InMemory is a map-backed key store for tests and local development.
type InMemory struct {
	mu   sync.RWMutex
	keys map[id.KeyID]*models.CompositeKey
}

func NewInMemory() *InMemory {
	return &InMemory{keys: make(map[id.KeyID]*models.CompositeKey)}
}

// Seed inserts a key directly, bypassing issuance.
func (s *InMemory) Seed(key *models.CompositeKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.ID] = clone(key)
}

func (s *InMemory) ListByOwner(ctx context.Context, companyID id.CompanyID, ownerID id.UserID) ([]*models.CompositeKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.CompositeKey
	for _, key := range s.keys {
		if key.CompanyID == companyID && key.OwnerID == ownerID {
			out = append(out, clone(key))
		}
	}
	return out, nil
}

func (s *InMemory) ListMembers(ctx context.Context, parentIDs []id.KeyID) ([]*models.CompositeKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parents := make(map[id.KeyID]struct{}, len(parentIDs))
	for _, keyID := range parentIDs {
		parents[keyID] = struct{}{}
	}

	var out []*models.CompositeKey
	for _, key := range s.keys {
		parentID, ok := key.ParentID.Get()
		if !ok {
			continue
		}
		if _, match := parents[parentID]; match {
			out = append(out, clone(key))
		}
	}
	return out, nil
}

func (s *InMemory) UpdatePayload(ctx context.Context, keyID id.KeyID, payload models.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[keyID]
	if !ok {
		return sentinel.ErrNotFound
	}
	key.Payload = payload.Clone()
	return nil
}

// Get returns a copy of the key, for test assertions.
func (s *InMemory) Get(keyID id.KeyID) (*models.CompositeKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[keyID]
	if !ok {
		return nil, false
	}
	return clone(key), true
}

func clone(key *models.CompositeKey) *models.CompositeKey {
	copied := *key
	copied.Payload = key.Payload.Clone()
	return &copied
}

// Package user implements the platform account directory consulted when
// linking abonents to users. Accounts are created by the platform's signup
// flow; this module only reads them.
package user

import (
	"context"
	"sync"

	id "domopass/pkg/domain"
)

// InMemory is a map-backed directory for tests and local development.
type InMemory struct {
	mu      sync.RWMutex
	byPhone map[string]id.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{byPhone: make(map[string]id.UserID)}
}

// Seed links a phone number to a user id.
func (s *InMemory) Seed(phone string, userID id.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPhone[phone] = userID
}

// FindByPhone resolves an account by phone number. Absence is a normal
// outcome.
func (s *InMemory) FindByPhone(ctx context.Context, phone string) (id.Optional[id.UserID], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if userID, ok := s.byPhone[phone]; ok {
		return id.Some(userID), nil
	}
	return id.None[id.UserID](), nil
}

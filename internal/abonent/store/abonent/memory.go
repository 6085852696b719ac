package abonent

import (
	"context"
	"sync"

	"domopass/internal/abonent/models"
	id "domopass/pkg/domain"
	"domopass/pkg/platform/sentinel"
)

// InMemory implements the abonent store over maps. Used by unit tests and
// local development; production runs on Postgres.
type InMemory struct {
	mu       sync.RWMutex
	abonents map[id.AbonentID]*models.Abonent
}

func NewInMemory() *InMemory {
	return &InMemory{abonents: make(map[id.AbonentID]*models.Abonent)}
}

func (s *InMemory) FindByID(ctx context.Context, companyID id.CompanyID, abonentID id.AbonentID) (*models.Abonent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.abonents[abonentID]
	if !ok || a.CompanyID != companyID {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

func (s *InMemory) FindByPhone(ctx context.Context, companyID id.CompanyID, phone string) (*models.Abonent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.abonents {
		if a.CompanyID == companyID && a.Phone == phone {
			return clone(a), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByUser(ctx context.Context, companyID id.CompanyID, userID id.UserID) (*models.Abonent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.abonents {
		linked, ok := a.User.Get()
		if ok && a.CompanyID == companyID && linked == userID {
			return clone(a), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Add(ctx context.Context, abonent *models.Abonent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.abonents[abonent.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, a := range s.abonents {
		if a.CompanyID == abonent.CompanyID && a.Phone == abonent.Phone {
			return sentinel.ErrConflict
		}
	}
	s.abonents[abonent.ID] = clone(abonent)
	return nil
}

func (s *InMemory) Update(ctx context.Context, abonent *models.Abonent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.abonents[abonent.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.abonents[abonent.ID] = clone(abonent)
	return nil
}

func (s *InMemory) Delete(ctx context.Context, companyID id.CompanyID, abonentID id.AbonentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.abonents[abonentID]
	if !ok || a.CompanyID != companyID {
		return sentinel.ErrNotFound
	}
	delete(s.abonents, abonentID)
	return nil
}

func clone(a *models.Abonent) *models.Abonent {
	copied := *a
	copied.Cars = append([]string(nil), a.Cars...)
	copied.Grants = append([]models.PerimeterGrant(nil), a.Grants...)
	copied.TemporaryGrants = append([]models.TemporaryGrant(nil), a.TemporaryGrants...)
	return &copied
}

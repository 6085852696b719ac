package company

import (
	"context"
	"strings"
	"sync"

	"domopass/internal/company/models"
	id "domopass/pkg/domain"
	"domopass/pkg/platform/sentinel"
)

// InMemory is a map-backed company store for tests and local development.
// Name uniqueness is case-insensitive.
type InMemory struct {
	mu        sync.RWMutex
	companies map[id.CompanyID]*models.Company
}

func NewInMemory() *InMemory {
	return &InMemory{companies: make(map[id.CompanyID]*models.Company)}
}

func (s *InMemory) Create(ctx context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.companies[company.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.companies {
		if strings.EqualFold(existing.Name, company.Name) {
			return sentinel.ErrConflict
		}
	}
	copied := *company
	s.companies[company.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	company, ok := s.companies[companyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *company
	return &copied, nil
}

func (s *InMemory) FindByName(ctx context.Context, name string) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, company := range s.companies {
		if strings.EqualFold(company.Name, name) {
			copied := *company
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

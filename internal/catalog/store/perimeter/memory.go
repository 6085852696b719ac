package perimeter

import (
	"context"
	"sync"

	"domopass/internal/catalog/models"
	id "domopass/pkg/domain"
)

// InMemory implements the perimeter catalog over a map. Used in unit tests
// and local development.
type InMemory struct {
	mu         sync.RWMutex
	perimeters map[id.PerimeterID]*models.Perimeter
}

func NewInMemory() *InMemory {
	return &InMemory{perimeters: make(map[id.PerimeterID]*models.Perimeter)}
}

// Seed registers a perimeter. Test helper; overwrites silently.
func (s *InMemory) Seed(p *models.Perimeter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perimeters[p.ID] = p
}

// FindByIDs returns the perimeters from ids that exist and belong to the
// company. Missing ids are simply absent from the result; callers compare
// lengths to detect unregistered references.
func (s *InMemory) FindByIDs(ctx context.Context, companyID id.CompanyID, ids []id.PerimeterID) ([]*models.Perimeter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make([]*models.Perimeter, 0, len(ids))
	for _, perimeterID := range ids {
		p, ok := s.perimeters[perimeterID]
		if !ok || p.CompanyID != companyID {
			continue
		}
		copied := *p
		found = append(found, &copied)
	}
	return found, nil
}

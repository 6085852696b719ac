package tariff

import (
	"context"
	"sync"

	"domopass/internal/catalog/models"
	id "domopass/pkg/domain"
)

// InMemory implements the tariff-plan catalog over a map.
type InMemory struct {
	mu    sync.RWMutex
	plans map[id.TariffPlanID]*models.TariffPlan
}

func NewInMemory() *InMemory {
	return &InMemory{plans: make(map[id.TariffPlanID]*models.TariffPlan)}
}

// Seed registers a tariff plan. Test helper.
func (s *InMemory) Seed(p *models.TariffPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
}

// FindByIDs returns the plans that exist. Ownership is checked by the caller;
// the catalog contract is existence lookup only.
func (s *InMemory) FindByIDs(ctx context.Context, ids []id.TariffPlanID) ([]*models.TariffPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make([]*models.TariffPlan, 0, len(ids))
	for _, planID := range ids {
		if p, ok := s.plans[planID]; ok {
			copied := *p
			found = append(found, &copied)
		}
	}
	return found, nil
}

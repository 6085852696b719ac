package template

import (
	"context"
	"sync"

	"domopass/internal/key/models"
	id "domopass/pkg/domain"
)

// InMemory is a map-backed template catalog for tests and local development.
type InMemory struct {
	mu        sync.RWMutex
	templates map[id.TemplateID]*models.Template
}

func NewInMemory() *InMemory {
	return &InMemory{templates: make(map[id.TemplateID]*models.Template)}
}

// Seed inserts a template directly.
func (s *InMemory) Seed(t *models.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *t
	s.templates[t.ID] = &copied
}

// FindByPerimeters returns the templates bound to any of the given
// perimeters. Perimeters without templates contribute nothing.
func (s *InMemory) FindByPerimeters(ctx context.Context, perimeterIDs []id.PerimeterID) ([]*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[id.PerimeterID]struct{}, len(perimeterIDs))
	for _, perimeterID := range perimeterIDs {
		wanted[perimeterID] = struct{}{}
	}

	var out []*models.Template
	for _, t := range s.templates {
		if _, ok := wanted[t.PerimeterID]; ok {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

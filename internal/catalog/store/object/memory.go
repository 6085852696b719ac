package object

import (
	"context"
	"sync"

	"domopass/internal/catalog/models"
	id "domopass/pkg/domain"
	"domopass/pkg/platform/sentinel"
)

// InMemory implements the access-object catalog over maps.
type InMemory struct {
	mu      sync.RWMutex
	objects map[id.ObjectID]*models.AccessObject
	parents map[id.PerimeterID]id.ObjectID
}

func NewInMemory() *InMemory {
	return &InMemory{
		objects: make(map[id.ObjectID]*models.AccessObject),
		parents: make(map[id.PerimeterID]id.ObjectID),
	}
}

// Seed registers an access object and the perimeters it owns. Test helper.
func (s *InMemory) Seed(obj *models.AccessObject, perimeterIDs ...id.PerimeterID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[obj.ID] = obj
	for _, perimeterID := range perimeterIDs {
		s.parents[perimeterID] = obj.ID
	}
}

// ParentOfPerimeter resolves the access object that owns the perimeter.
// Returns sentinel.ErrNotFound when the perimeter has no registered parent.
func (s *InMemory) ParentOfPerimeter(ctx context.Context, perimeterID id.PerimeterID) (*models.AccessObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objectID, ok := s.parents[perimeterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	obj, ok := s.objects[objectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *obj
	copied.Categories = append([]string(nil), obj.Categories...)
	return &copied, nil
}

// Package service implements abonent administration: registration, updates,
// unregistration, and per-grant removal, with change-set computation and
// propagation to composite-key reconciliation.
package service

import (
	"context"
	"log/slog"

	catalogmodels "domopass/internal/catalog/models"

	abonentmetrics "domopass/internal/abonent/metrics"
	"domopass/internal/abonent/models"
	id "domopass/pkg/domain"
)

// AbonentStore persists the abonent aggregate. Implementations return
// sentinel errors for infrastructure facts; the service translates them.
type AbonentStore interface {
	FindByID(ctx context.Context, companyID id.CompanyID, abonentID id.AbonentID) (*models.Abonent, error)
	FindByPhone(ctx context.Context, companyID id.CompanyID, phone string) (*models.Abonent, error)
	FindByUser(ctx context.Context, companyID id.CompanyID, userID id.UserID) (*models.Abonent, error)
	Add(ctx context.Context, abonent *models.Abonent) error
	Update(ctx context.Context, abonent *models.Abonent) error
	Delete(ctx context.Context, companyID id.CompanyID, abonentID id.AbonentID) error
}

// PerimeterCatalog filters a perimeter id set to those existing under a
// company.
type PerimeterCatalog interface {
	FindByIDs(ctx context.Context, companyID id.CompanyID, ids []id.PerimeterID) ([]*catalogmodels.Perimeter, error)
}

// TariffCatalog looks tariff plans up by id set. Ownership is checked by the
// guard.
type TariffCatalog interface {
	FindByIDs(ctx context.Context, ids []id.TariffPlanID) ([]*catalogmodels.TariffPlan, error)
}

// ObjectCatalog resolves the parent access object of a perimeter.
type ObjectCatalog interface {
	ParentOfPerimeter(ctx context.Context, perimeterID id.PerimeterID) (*catalogmodels.AccessObject, error)
}

// UserDirectory resolves platform accounts by phone number. Absence is a
// normal outcome, not an error.
type UserDirectory interface {
	FindByPhone(ctx context.Context, phone string) (id.Optional[id.UserID], error)
}

// Propagator fans change sets out to subscribers after the aggregate is
// persisted. Its failures never roll the persisted mutation back.
type Propagator interface {
	AbonentChanged(ctx context.Context, abonent *models.Abonent, changes models.ChangeSets) error
	AbonentRemoved(ctx context.Context, companyID id.CompanyID, user id.Optional[id.UserID], perimeterIDs []id.PerimeterID) error
}

// Service orchestrates abonent lifecycle management.
type Service struct {
	abonents   AbonentStore
	guard      *Guard
	objects    ObjectCatalog
	users      UserDirectory
	propagator Propagator
	logger     *slog.Logger
	metrics    *abonentmetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *abonentmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(
	abonents AbonentStore,
	guard *Guard,
	objects ObjectCatalog,
	users UserDirectory,
	propagator Propagator,
	opts ...Option,
) *Service {
	s := &Service{
		abonents:   abonents,
		guard:      guard,
		objects:    objects,
		users:      users,
		propagator: propagator,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

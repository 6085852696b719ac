package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	catalogmodels "domopass/internal/catalog/models"
	"domopass/internal/catalog/store/object"
	"domopass/internal/catalog/store/perimeter"
	"domopass/internal/catalog/store/tariff"

	"domopass/internal/abonent/models"
	"domopass/internal/abonent/store/abonent"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
	"domopass/pkg/requestcontext"
)

type changedCall struct {
	abonent *models.Abonent
	changes models.ChangeSets
}

type removedCall struct {
	companyID    id.CompanyID
	user         id.Optional[id.UserID]
	perimeterIDs []id.PerimeterID
}

// fakePropagator records propagation calls and can be told to fail.
type fakePropagator struct {
	changed []changedCall
	removed []removedCall
	err     error
}

func (p *fakePropagator) AbonentChanged(ctx context.Context, a *models.Abonent, changes models.ChangeSets) error {
	p.changed = append(p.changed, changedCall{abonent: a, changes: changes})
	return p.err
}

func (p *fakePropagator) AbonentRemoved(ctx context.Context, companyID id.CompanyID, user id.Optional[id.UserID], perimeterIDs []id.PerimeterID) error {
	p.removed = append(p.removed, removedCall{companyID: companyID, user: user, perimeterIDs: perimeterIDs})
	return p.err
}

// fakeUsers resolves platform accounts from a fixed phone book.
type fakeUsers struct {
	byPhone map[string]id.UserID
	err     error
}

func (u *fakeUsers) FindByPhone(ctx context.Context, phone string) (id.Optional[id.UserID], error) {
	if u.err != nil {
		return id.None[id.UserID](), u.err
	}
	if userID, ok := u.byPhone[phone]; ok {
		return id.Some(userID), nil
	}
	return id.None[id.UserID](), nil
}

type ServiceSuite struct {
	suite.Suite
	ctx context.Context
	now time.Time

	company    id.CompanyID
	store      *abonent.InMemory
	perimeters *perimeter.InMemory
	tariffs    *tariff.InMemory
	objects    *object.InMemory
	users      *fakeUsers
	propagator *fakePropagator
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.company = id.CompanyID(uuid.New())
	s.store = abonent.NewInMemory()
	s.perimeters = perimeter.NewInMemory()
	s.tariffs = tariff.NewInMemory()
	s.objects = object.NewInMemory()
	s.users = &fakeUsers{byPhone: map[string]id.UserID{}}
	s.propagator = &fakePropagator{}
	s.service = New(
		s.store,
		NewGuard(s.perimeters, s.tariffs),
		s.objects,
		s.users,
		s.propagator,
	)
}

func (s *ServiceSuite) seedPerimeter() id.PerimeterID {
	perimeterID := id.PerimeterID(uuid.New())
	s.perimeters.Seed(&catalogmodels.Perimeter{
		ID:        perimeterID,
		ObjectID:  id.ObjectID(uuid.New()),
		CompanyID: s.company,
		Name:      "courtyard",
	})
	return perimeterID
}

func (s *ServiceSuite) seedTariff() id.TariffPlanID {
	planID := id.TariffPlanID(uuid.New())
	s.tariffs.Seed(&catalogmodels.TariffPlan{
		ID:        planID,
		CompanyID: s.company,
		Name:      "standard",
	})
	return planID
}

func (s *ServiceSuite) seedGrant() models.PerimeterGrant {
	return models.PerimeterGrant{
		PerimeterID:  s.seedPerimeter(),
		TariffPlanID: s.seedTariff(),
	}
}

func (s *ServiceSuite) register(req models.RegisterRequest) *models.Abonent {
	created, err := s.service.Register(s.ctx, req)
	s.Require().NoError(err)
	return created
}

// TestRegister covers creation, validation ordering, and duplicate detection.
func (s *ServiceSuite) TestRegister() {
	s.Run("creates abonent with grants and resolves linked user", func() {
		grant := s.seedGrant()
		temporaryID := s.seedPerimeter()
		userID := id.UserID(uuid.New())
		s.users.byPhone["+70001"] = userID

		created := s.register(models.RegisterRequest{
			CompanyID:           s.company,
			Name:                "Ivanov",
			Phone:               "+70001",
			Address:             "bldg 1",
			Cars:                []string{" A123BC ", "A123BC", "B456DE"},
			Perimeters:          []models.PerimeterGrant{grant},
			TemporaryPerimeters: []id.PerimeterID{temporaryID},
		})

		s.Equal([]string{"A123BC", "B456DE"}, created.Cars, "cars are trimmed and deduplicated")
		linked, ok := created.User.Get()
		s.Require().True(ok)
		s.Equal(userID, linked)

		stored, err := s.store.FindByID(s.ctx, s.company, created.ID)
		s.Require().NoError(err)
		s.Equal([]models.PerimeterGrant{grant}, stored.Grants)
		s.Require().Len(stored.TemporaryGrants, 1)
		s.False(stored.TemporaryGrants[0].Removed)

		s.Require().Len(s.propagator.changed, 1)
		changes := s.propagator.changed[0].changes
		s.Equal([]models.PerimeterGrant{grant}, changes.Perimeters.Added)
		s.Equal([]id.PerimeterID{temporaryID}, changes.Temporary.Added)
	})

	s.Run("registers without a platform account", func() {
		created := s.register(models.RegisterRequest{
			CompanyID: s.company,
			Name:      "Petrov",
			Phone:     "+70002",
		})
		s.False(created.User.IsPresent())
	})

	s.Run("rejects duplicate perimeters without persisting", func() {
		grant := s.seedGrant()
		s.propagator.changed = nil

		_, err := s.service.Register(s.ctx, models.RegisterRequest{
			CompanyID:  s.company,
			Phone:      "+70003",
			Perimeters: []models.PerimeterGrant{grant, grant},
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeReferentialIntegrity))

		_, err = s.store.FindByPhone(s.ctx, s.company, "+70003")
		s.Error(err, "nothing may be persisted when validation fails")
		s.Empty(s.propagator.changed)
	})

	s.Run("rejects unregistered perimeter", func() {
		_, err := s.service.Register(s.ctx, models.RegisterRequest{
			CompanyID: s.company,
			Phone:     "+70004",
			Perimeters: []models.PerimeterGrant{{
				PerimeterID:  id.PerimeterID(uuid.New()),
				TariffPlanID: s.seedTariff(),
			}},
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeReferentialIntegrity))
	})

	s.Run("rejects tariff plan owned by another company", func() {
		foreignPlan := id.TariffPlanID(uuid.New())
		s.tariffs.Seed(&catalogmodels.TariffPlan{
			ID:        foreignPlan,
			CompanyID: id.CompanyID(uuid.New()),
			Name:      "foreign",
		})

		_, err := s.service.Register(s.ctx, models.RegisterRequest{
			CompanyID: s.company,
			Phone:     "+70005",
			Perimeters: []models.PerimeterGrant{{
				PerimeterID:  s.seedPerimeter(),
				TariffPlanID: foreignPlan,
			}},
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeReferentialIntegrity))
	})

	s.Run("rejects duplicate phone", func() {
		s.register(models.RegisterRequest{CompanyID: s.company, Phone: "+70006"})

		_, err := s.service.Register(s.ctx, models.RegisterRequest{CompanyID: s.company, Phone: "+70006"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateEntry))
	})

	s.Run("returns abonent and error when propagation fails", func() {
		s.propagator.err = dErrors.New(dErrors.CodeHandlerFailure, "handlers failed")

		created, err := s.service.Register(s.ctx, models.RegisterRequest{CompanyID: s.company, Phone: "+70007"})
		s.Require().Error(err)
		s.Require().NotNil(created, "a propagation failure does not roll the registration back")

		_, findErr := s.store.FindByID(s.ctx, s.company, created.ID)
		s.NoError(findErr)
		s.propagator.err = nil
	})
}

// TestUpdate covers diffing, application, and propagation of the computed
// change sets.
func (s *ServiceSuite) TestUpdate() {
	s.Run("returns NotFound for unknown abonent", func() {
		_, err := s.service.Update(s.ctx, models.UpdateRequest{
			CompanyID: s.company,
			AbonentID: id.AbonentID(uuid.New()),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("propagates only the tariff change when nothing else differs", func() {
		grant := s.seedGrant()
		created := s.register(models.RegisterRequest{
			CompanyID:  s.company,
			Name:       "Sidorov",
			Phone:      "+70010",
			Perimeters: []models.PerimeterGrant{grant},
		})
		s.propagator.changed = nil

		newPlan := s.seedTariff()
		_, err := s.service.Update(s.ctx, models.UpdateRequest{
			CompanyID: s.company,
			AbonentID: created.ID,
			Name:      "Sidorov",
			Perimeters: []models.PerimeterGrant{{
				PerimeterID:  grant.PerimeterID,
				TariffPlanID: newPlan,
			}},
		})
		s.Require().NoError(err)

		s.Require().Len(s.propagator.changed, 1)
		changes := s.propagator.changed[0].changes
		s.Empty(changes.Perimeters.Added)
		s.Empty(changes.Perimeters.RemovedIDs)
		s.Require().Len(changes.Perimeters.TariffChanged, 1)
		s.Equal(newPlan, changes.Perimeters.TariffChanged[0].TariffPlanID)
		s.True(changes.Cars.Empty())
		s.True(changes.Temporary.Empty())
		s.True(changes.Attributes.Empty())
	})

	s.Run("computes car diff against the stored list", func() {
		created := s.register(models.RegisterRequest{
			CompanyID: s.company,
			Phone:     "+70011",
			Cars:      []string{"A123BC", "B456DE"},
		})
		s.propagator.changed = nil

		updated, err := s.service.Update(s.ctx, models.UpdateRequest{
			CompanyID: s.company,
			AbonentID: created.ID,
			Cars:      []string{"B456DE", "C789FG"},
		})
		s.Require().NoError(err)
		s.Equal([]string{"B456DE", "C789FG"}, updated.Cars)

		changes := s.propagator.changed[0].changes
		s.Equal([]string{"C789FG"}, changes.Cars.Added)
		s.Equal([]string{"A123BC"}, changes.Cars.Deleted)
	})

	s.Run("soft-removes dropped temporary grants", func() {
		temporaryID := s.seedPerimeter()
		created := s.register(models.RegisterRequest{
			CompanyID:           s.company,
			Phone:               "+70012",
			TemporaryPerimeters: []id.PerimeterID{temporaryID},
		})
		s.propagator.changed = nil

		_, err := s.service.Update(s.ctx, models.UpdateRequest{
			CompanyID: s.company,
			AbonentID: created.ID,
		})
		s.Require().NoError(err)

		stored, err := s.store.FindByID(s.ctx, s.company, created.ID)
		s.Require().NoError(err)
		s.Require().Len(stored.TemporaryGrants, 1, "removal is soft, the record stays")
		s.True(stored.TemporaryGrants[0].Removed)
		s.Equal(s.now, stored.TemporaryGrants[0].RemovedAt)

		changes := s.propagator.changed[0].changes
		s.Equal([]id.PerimeterID{temporaryID}, changes.Temporary.Removed)
	})

	s.Run("detects display name and category changes", func() {
		first := s.seedGrant()
		second := s.seedGrant()
		s.objects.Seed(&catalogmodels.AccessObject{
			ID:         id.ObjectID(uuid.New()),
			CompanyID:  s.company,
			Categories: []string{"gate", "parking"},
		}, second.PerimeterID)

		created := s.register(models.RegisterRequest{
			CompanyID:  s.company,
			Name:       "Before",
			Phone:      "+70013",
			Perimeters: []models.PerimeterGrant{first},
		})
		s.propagator.changed = nil

		_, err := s.service.Update(s.ctx, models.UpdateRequest{
			CompanyID:  s.company,
			AbonentID:  created.ID,
			Name:       "After",
			Perimeters: []models.PerimeterGrant{second},
		})
		s.Require().NoError(err)

		changes := s.propagator.changed[0].changes
		fields := make(map[models.AttributeField]models.AttributeChange, len(changes.Attributes.Changes))
		for _, c := range changes.Attributes.Changes {
			fields[c.Field] = c
		}
		s.Require().Contains(fields, models.FieldDisplayName)
		s.Equal("After", fields[models.FieldDisplayName].Name)
		s.Require().Contains(fields, models.FieldCategories)
		s.Equal([]string{"gate", "parking"}, fields[models.FieldCategories].Categories)
	})

	s.Run("an identical request produces empty change sets", func() {
		grant := s.seedGrant()
		created := s.register(models.RegisterRequest{
			CompanyID:  s.company,
			Name:       "Same",
			Phone:      "+70014",
			Cars:       []string{"A123BC"},
			Perimeters: []models.PerimeterGrant{grant},
		})
		s.propagator.changed = nil

		_, err := s.service.Update(s.ctx, models.UpdateRequest{
			CompanyID:  s.company,
			AbonentID:  created.ID,
			Name:       "Same",
			Cars:       []string{"A123BC"},
			Perimeters: []models.PerimeterGrant{grant},
		})
		s.Require().NoError(err)

		changes := s.propagator.changed[0].changes
		s.True(changes.Perimeters.Empty())
		s.True(changes.Cars.Empty())
		s.True(changes.Temporary.Empty())
		s.True(changes.Attributes.Empty())
	})
}

// TestUpdateLinksLateUser covers platform accounts created after the
// abonent was registered: phone never changes, so an absent link is
// re-resolved on the next update.
func (s *ServiceSuite) TestUpdateLinksLateUser() {
	s.Run("resolves a link that appeared after registration", func() {
		created := s.register(models.RegisterRequest{
			CompanyID: s.company,
			Name:      "Orlova",
			Phone:     "+70020",
			Cars:      []string{"A123BC"},
		})
		s.Require().False(created.User.IsPresent())

		userID := id.UserID(uuid.New())
		s.users.byPhone["+70020"] = userID
		s.propagator.changed = nil

		updated, err := s.service.Update(s.ctx, models.UpdateRequest{
			CompanyID: s.company,
			AbonentID: created.ID,
			Name:      "Orlova",
			Cars:      []string{"A123BC", "B456DE"},
		})
		s.Require().NoError(err)

		linked, present := updated.User.Get()
		s.Require().True(present)
		s.Equal(userID, linked)

		stored, err := s.store.FindByUser(s.ctx, s.company, userID)
		s.Require().NoError(err)
		s.Equal(created.ID, stored.ID)

		s.Require().Len(s.propagator.changed, 1)
		propagated, present := s.propagator.changed[0].abonent.User.Get()
		s.Require().True(present)
		s.Equal(userID, propagated)
	})

	s.Run("keeps an established link untouched", func() {
		userID := id.UserID(uuid.New())
		s.users.byPhone["+70021"] = userID
		created := s.register(models.RegisterRequest{
			CompanyID: s.company,
			Name:      "Volkov",
			Phone:     "+70021",
		})
		s.Require().True(created.User.IsPresent())

		delete(s.users.byPhone, "+70021")
		updated, err := s.service.Update(s.ctx, models.UpdateRequest{
			CompanyID: s.company,
			AbonentID: created.ID,
			Name:      "Volkov",
		})
		s.Require().NoError(err)
		s.True(updated.User.IsPresent())
	})

	s.Run("fails when the directory is unavailable", func() {
		created := s.register(models.RegisterRequest{
			CompanyID: s.company,
			Name:      "Zaytsev",
			Phone:     "+70022",
		})

		s.users.err = errors.New("directory down")
		_, err := s.service.Update(s.ctx, models.UpdateRequest{
			CompanyID: s.company,
			AbonentID: created.ID,
			Name:      "Zaytsev",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

// TestUnregister covers deletion and the removal notification.
func (s *ServiceSuite) TestUnregister() {
	s.Run("returns NotFound and emits nothing for unknown abonent", func() {
		err := s.service.Unregister(s.ctx, models.UnregisterRequest{
			CompanyID: s.company,
			AbonentID: id.AbonentID(uuid.New()),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Empty(s.propagator.removed)
	})

	s.Run("deletes and notifies with the family perimeter ids", func() {
		grant := s.seedGrant()
		userID := id.UserID(uuid.New())
		s.users.byPhone["+70020"] = userID
		created := s.register(models.RegisterRequest{
			CompanyID:  s.company,
			Phone:      "+70020",
			Perimeters: []models.PerimeterGrant{grant},
		})

		err := s.service.Unregister(s.ctx, models.UnregisterRequest{
			CompanyID: s.company,
			AbonentID: created.ID,
		})
		s.Require().NoError(err)

		_, findErr := s.store.FindByID(s.ctx, s.company, created.ID)
		s.Error(findErr)

		s.Require().Len(s.propagator.removed, 1)
		call := s.propagator.removed[0]
		s.Equal(s.company, call.companyID)
		s.Equal([]id.PerimeterID{grant.PerimeterID}, call.perimeterIDs)
		linked, ok := call.user.Get()
		s.Require().True(ok)
		s.Equal(userID, linked)
	})
}

// TestGrantRemoval covers the per-grant delete operations keyed by user.
func (s *ServiceSuite) TestGrantRemoval() {
	s.Run("temporary grant removal is soft and idempotent", func() {
		temporaryID := s.seedPerimeter()
		userID := id.UserID(uuid.New())
		s.users.byPhone["+70030"] = userID
		created := s.register(models.RegisterRequest{
			CompanyID:           s.company,
			Phone:               "+70030",
			TemporaryPerimeters: []id.PerimeterID{temporaryID},
		})
		s.propagator.changed = nil

		s.Require().NoError(s.service.DeleteTemporaryGrant(s.ctx, userID, s.company, temporaryID))

		stored, err := s.store.FindByID(s.ctx, s.company, created.ID)
		s.Require().NoError(err)
		s.Require().Len(stored.TemporaryGrants, 1)
		s.True(stored.TemporaryGrants[0].Removed)

		s.Require().NoError(s.service.DeleteTemporaryGrant(s.ctx, userID, s.company, temporaryID), "second removal is a no-op")
		s.Empty(s.propagator.changed, "temporary grant removal emits no propagation")
	})

	s.Run("family grant removal propagates the removed perimeter", func() {
		grant := s.seedGrant()
		userID := id.UserID(uuid.New())
		s.users.byPhone["+70031"] = userID
		created := s.register(models.RegisterRequest{
			CompanyID:  s.company,
			Phone:      "+70031",
			Perimeters: []models.PerimeterGrant{grant},
		})
		s.propagator.changed = nil

		s.Require().NoError(s.service.DeleteFamilyGrant(s.ctx, userID, s.company, grant.PerimeterID))

		stored, err := s.store.FindByID(s.ctx, s.company, created.ID)
		s.Require().NoError(err)
		s.Empty(stored.Grants)

		s.Require().Len(s.propagator.changed, 1)
		s.Equal([]id.PerimeterID{grant.PerimeterID}, s.propagator.changed[0].changes.Perimeters.RemovedIDs)
	})

	s.Run("returns NotFound when no abonent is linked to the user", func() {
		err := s.service.DeleteFamilyGrant(s.ctx, id.UserID(uuid.New()), s.company, s.seedPerimeter())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing grant on an existing abonent is not an error", func() {
		userID := id.UserID(uuid.New())
		s.users.byPhone["+70032"] = userID
		s.register(models.RegisterRequest{CompanyID: s.company, Phone: "+70032"})
		s.propagator.changed = nil

		s.Require().NoError(s.service.DeleteFamilyGrant(s.ctx, userID, s.company, s.seedPerimeter()))
		s.Empty(s.propagator.changed)
	})
}

// TestGuardInternalFailures verifies catalog errors surface as internal, not
// referential, failures.
func (s *ServiceSuite) TestGuardInternalFailures() {
	s.Run("user directory failure aborts registration", func() {
		s.users.err = errors.New("directory down")

		_, err := s.service.Register(s.ctx, models.RegisterRequest{CompanyID: s.company, Phone: "+70040"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.users.err = nil
	})
}

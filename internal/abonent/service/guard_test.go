package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	catalogmodels "domopass/internal/catalog/models"
	"domopass/internal/catalog/store/perimeter"
	"domopass/internal/catalog/store/tariff"

	"domopass/internal/abonent/models"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
)

// countingPerimeters wraps the perimeter catalog and counts lookups so order
// tests can assert no catalog I/O happened.
type countingPerimeters struct {
	inner *perimeter.InMemory
	calls int
}

func (c *countingPerimeters) FindByIDs(ctx context.Context, companyID id.CompanyID, ids []id.PerimeterID) ([]*catalogmodels.Perimeter, error) {
	c.calls++
	return c.inner.FindByIDs(ctx, companyID, ids)
}

type countingTariffs struct {
	inner *tariff.InMemory
	calls int
}

func (c *countingTariffs) FindByIDs(ctx context.Context, ids []id.TariffPlanID) ([]*catalogmodels.TariffPlan, error) {
	c.calls++
	return c.inner.FindByIDs(ctx, ids)
}

type GuardSuite struct {
	suite.Suite
	ctx        context.Context
	company    id.CompanyID
	perimeters *countingPerimeters
	tariffs    *countingTariffs
	guard      *Guard
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.ctx = context.Background()
	s.company = id.CompanyID(uuid.New())
	s.perimeters = &countingPerimeters{inner: perimeter.NewInMemory()}
	s.tariffs = &countingTariffs{inner: tariff.NewInMemory()}
	s.guard = NewGuard(s.perimeters, s.tariffs)
}

func (s *GuardSuite) seedPerimeter() id.PerimeterID {
	perimeterID := id.PerimeterID(uuid.New())
	s.perimeters.inner.Seed(&catalogmodels.Perimeter{
		ID:        perimeterID,
		ObjectID:  id.ObjectID(uuid.New()),
		CompanyID: s.company,
		Name:      "entrance",
	})
	return perimeterID
}

func (s *GuardSuite) seedTariff() id.TariffPlanID {
	planID := id.TariffPlanID(uuid.New())
	s.tariffs.inner.Seed(&catalogmodels.TariffPlan{ID: planID, CompanyID: s.company, Name: "basic"})
	return planID
}

// TestVerify covers the acceptance cases and the fixed check order.
func (s *GuardSuite) TestVerify() {
	s.Run("accepts an empty desired set", func() {
		s.Require().NoError(s.guard.Verify(s.ctx, nil, s.company, nil))
		s.Zero(s.perimeters.calls)
		s.Zero(s.tariffs.calls)
	})

	s.Run("accepts registered perimeters and tariffs", func() {
		grants := []models.PerimeterGrant{
			{PerimeterID: s.seedPerimeter(), TariffPlanID: s.seedTariff()},
			{PerimeterID: s.seedPerimeter(), TariffPlanID: s.seedTariff()},
		}
		s.Require().NoError(s.guard.Verify(s.ctx, grants, s.company, []id.PerimeterID{s.seedPerimeter()}))
	})

	s.Run("rejects duplicate family perimeters before touching the catalogs", func() {
		grant := models.PerimeterGrant{PerimeterID: s.seedPerimeter(), TariffPlanID: s.seedTariff()}
		s.perimeters.calls = 0
		s.tariffs.calls = 0

		err := s.guard.Verify(s.ctx, []models.PerimeterGrant{grant, grant}, s.company, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeReferentialIntegrity))
		s.Zero(s.perimeters.calls)
		s.Zero(s.tariffs.calls)
	})

	s.Run("rejects unregistered family perimeter before tariff lookup", func() {
		grants := []models.PerimeterGrant{{
			PerimeterID:  id.PerimeterID(uuid.New()),
			TariffPlanID: s.seedTariff(),
		}}
		s.tariffs.calls = 0

		err := s.guard.Verify(s.ctx, grants, s.company, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeReferentialIntegrity))
		s.Zero(s.tariffs.calls)
	})

	s.Run("rejects perimeter registered to another company", func() {
		foreign := id.PerimeterID(uuid.New())
		s.perimeters.inner.Seed(&catalogmodels.Perimeter{
			ID:        foreign,
			ObjectID:  id.ObjectID(uuid.New()),
			CompanyID: id.CompanyID(uuid.New()),
			Name:      "elsewhere",
		})

		err := s.guard.Verify(s.ctx, []models.PerimeterGrant{{
			PerimeterID:  foreign,
			TariffPlanID: s.seedTariff(),
		}}, s.company, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeReferentialIntegrity))
	})

	s.Run("deduplicates shared tariff plans before lookup", func() {
		plan := s.seedTariff()
		grants := []models.PerimeterGrant{
			{PerimeterID: s.seedPerimeter(), TariffPlanID: plan},
			{PerimeterID: s.seedPerimeter(), TariffPlanID: plan},
		}
		s.Require().NoError(s.guard.Verify(s.ctx, grants, s.company, nil))
	})

	s.Run("rejects unregistered tariff plan", func() {
		err := s.guard.Verify(s.ctx, []models.PerimeterGrant{{
			PerimeterID:  s.seedPerimeter(),
			TariffPlanID: id.TariffPlanID(uuid.New()),
		}}, s.company, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeReferentialIntegrity))
	})

	s.Run("checks the temporary list independently", func() {
		temporaryID := s.seedPerimeter()

		err := s.guard.Verify(s.ctx, nil, s.company, []id.PerimeterID{temporaryID, temporaryID})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeReferentialIntegrity))

		err = s.guard.Verify(s.ctx, nil, s.company, []id.PerimeterID{id.PerimeterID(uuid.New())})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeReferentialIntegrity))

		s.Require().NoError(s.guard.Verify(s.ctx, nil, s.company, []id.PerimeterID{temporaryID}))
	})
}

package service

import (
	"context"

	"domopass/internal/abonent/models"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
)

// Guard validates a desired entitlement set against the catalogs before any
// mutation is applied. Checks run in a fixed order and short-circuit on the
// first failure; no catalog I/O happens before the in-memory checks of a
// category pass.
type Guard struct {
	perimeters PerimeterCatalog
	tariffs    TariffCatalog
}

func NewGuard(perimeters PerimeterCatalog, tariffs TariffCatalog) *Guard {
	return &Guard{perimeters: perimeters, tariffs: tariffs}
}

// Verify checks, in order:
//  1. desired family perimeter ids are free of duplicates
//  2. every desired family perimeter exists and belongs to the company
//  3. every referenced tariff plan exists and is owned by the company
//     (after de-duplication of plan ids)
//  4. checks 1-2 again, independently, for the temporary perimeter list
func (g *Guard) Verify(ctx context.Context, desired []models.PerimeterGrant, companyID id.CompanyID, desiredTemporary []id.PerimeterID) error {
	familyIDs := make([]id.PerimeterID, len(desired))
	for i, grant := range desired {
		familyIDs[i] = grant.PerimeterID
	}
	if hasDuplicates(familyIDs) {
		return dErrors.New(dErrors.CodeReferentialIntegrity, "duplicate perimeters")
	}
	if err := g.verifyRegistered(ctx, companyID, familyIDs); err != nil {
		return err
	}

	if err := g.verifyTariffs(ctx, companyID, desired); err != nil {
		return err
	}

	if hasDuplicates(desiredTemporary) {
		return dErrors.New(dErrors.CodeReferentialIntegrity, "duplicate perimeters")
	}
	return g.verifyRegistered(ctx, companyID, desiredTemporary)
}

func (g *Guard) verifyRegistered(ctx context.Context, companyID id.CompanyID, ids []id.PerimeterID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := g.perimeters.FindByIDs(ctx, companyID, ids)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look perimeters up")
	}
	if len(found) != len(ids) {
		return dErrors.New(dErrors.CodeReferentialIntegrity, "unregistered perimeters")
	}
	return nil
}

func (g *Guard) verifyTariffs(ctx context.Context, companyID id.CompanyID, desired []models.PerimeterGrant) error {
	seen := make(map[id.TariffPlanID]struct{}, len(desired))
	planIDs := make([]id.TariffPlanID, 0, len(desired))
	for _, grant := range desired {
		if _, dup := seen[grant.TariffPlanID]; dup {
			continue
		}
		seen[grant.TariffPlanID] = struct{}{}
		planIDs = append(planIDs, grant.TariffPlanID)
	}
	if len(planIDs) == 0 {
		return nil
	}

	plans, err := g.tariffs.FindByIDs(ctx, planIDs)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look tariff plans up")
	}
	if len(plans) != len(planIDs) {
		return dErrors.New(dErrors.CodeReferentialIntegrity, "unregistered tariff plans")
	}
	for _, plan := range plans {
		if plan.CompanyID != companyID {
			return dErrors.New(dErrors.CodeReferentialIntegrity, "unregistered tariff plans")
		}
	}
	return nil
}

func hasDuplicates(ids []id.PerimeterID) bool {
	seen := make(map[id.PerimeterID]struct{}, len(ids))
	for _, perimeterID := range ids {
		if _, dup := seen[perimeterID]; dup {
			return true
		}
		seen[perimeterID] = struct{}{}
	}
	return false
}

package service

import (
	"context"
	"errors"

	"domopass/internal/abonent/models"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
	"domopass/pkg/platform/sentinel"
	"domopass/pkg/requestcontext"
)

// DeleteTemporaryGrant soft-removes the active temporary grant for the
// perimeter on the abonent linked to the user. A missing grant is not an
// error: the operation is idempotent and returns success.
func (s *Service) DeleteTemporaryGrant(ctx context.Context, userID id.UserID, companyID id.CompanyID, perimeterID id.PerimeterID) error {
	abonent, err := s.findByUser(ctx, companyID, userID)
	if err != nil {
		return err
	}

	if !abonent.RemoveTemporaryGrant(perimeterID, requestcontext.Now(ctx)) {
		return nil
	}
	if err := s.abonents.Update(ctx, abonent); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist abonent")
	}
	return nil
}

// DeleteFamilyGrant removes the family grant for the perimeter on the
// abonent linked to the user and propagates the removal. A missing grant is
// not an error.
func (s *Service) DeleteFamilyGrant(ctx context.Context, userID id.UserID, companyID id.CompanyID, perimeterID id.PerimeterID) error {
	abonent, err := s.findByUser(ctx, companyID, userID)
	if err != nil {
		return err
	}

	if !abonent.RemoveFamilyGrant(perimeterID) {
		return nil
	}
	abonent.UpdatedAt = requestcontext.Now(ctx)
	if err := s.abonents.Update(ctx, abonent); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist abonent")
	}

	changes := models.ChangeSets{
		Perimeters: models.PerimeterChangeSet{RemovedIDs: []id.PerimeterID{perimeterID}},
	}
	if err := s.propagator.AbonentChanged(ctx, abonent, changes); err != nil {
		s.logger.WarnContext(ctx, "family grant removal propagation incomplete",
			"abonent_id", abonent.ID.String(),
			"error", err,
		)
		return err
	}
	return nil
}

func (s *Service) findByUser(ctx context.Context, companyID id.CompanyID, userID id.UserID) (*models.Abonent, error) {
	abonent, err := s.abonents.FindByUser(ctx, companyID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "abonent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load abonent")
	}
	return abonent, nil
}

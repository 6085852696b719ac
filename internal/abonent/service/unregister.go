package service

import (
	"context"
	"errors"

	"domopass/internal/abonent/models"
	dErrors "domopass/pkg/domain-errors"
	"domopass/pkg/platform/sentinel"
)

// Unregister deletes the abonent and emits a removal propagation event for
// all of its family perimeter ids, deduplicated.
func (s *Service) Unregister(ctx context.Context, req models.UnregisterRequest) error {
	abonent, err := s.abonents.FindByID(ctx, req.CompanyID, req.AbonentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "abonent not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load abonent")
	}

	if err := s.abonents.Delete(ctx, req.CompanyID, req.AbonentID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete abonent")
	}

	if s.metrics != nil {
		s.metrics.IncrementUnregistered()
	}

	if err := s.propagator.AbonentRemoved(ctx, abonent.CompanyID, abonent.User, abonent.FamilyPerimeterIDs()); err != nil {
		s.logger.WarnContext(ctx, "unregistration propagation incomplete",
			"abonent_id", abonent.ID.String(),
			"error", err,
		)
		return err
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"time"

	"domopass/internal/abonent/diff"
	"domopass/internal/abonent/models"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
	"domopass/pkg/platform/sentinel"
	strutil "domopass/pkg/platform/strings"
	"domopass/pkg/requestcontext"
)

// Update diffs the request against the stored aggregate, applies the change
// sets, persists once, and forwards all change sets to the propagator.
//
// Diffs are computed from the snapshot loaded at the start of the request, so
// one update observes one consistent aggregate state.
func (s *Service) Update(ctx context.Context, req models.UpdateRequest) (*models.Abonent, error) {
	start := time.Now()

	if err := s.guard.Verify(ctx, req.Perimeters, req.CompanyID, req.TemporaryPerimeters); err != nil {
		return nil, err
	}

	abonent, err := s.abonents.FindByID(ctx, req.CompanyID, req.AbonentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "abonent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load abonent")
	}

	// The platform account may have been created after registration. Phone
	// never changes, so an absent link is re-resolved on every update until
	// a matching account appears.
	if !abonent.User.IsPresent() {
		user, err := s.users.FindByPhone(ctx, abonent.Phone)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve linked user")
		}
		abonent.User = user
	}

	desiredCars := strutil.DedupeAndTrim(req.Cars)

	existingState, err := s.attributeState(ctx, abonent.Name, abonent.FamilyPerimeterIDs())
	if err != nil {
		return nil, err
	}
	desiredState, err := s.attributeState(ctx, req.Name, perimeterIDsOf(req.Perimeters))
	if err != nil {
		return nil, err
	}

	changes := models.ChangeSets{
		Perimeters: diff.Perimeters(abonent.Grants, req.Perimeters),
		Cars:       diff.Cars(abonent.Cars, desiredCars),
		Temporary:  diff.Temporary(abonent.ActiveTemporaryGrants(), req.TemporaryPerimeters),
		Attributes: diff.Attributes(existingState, desiredState),
	}

	now := requestcontext.Now(ctx)
	abonent.Name = req.Name
	abonent.Address = req.Address
	abonent.ApplyPerimeterChanges(changes.Perimeters)
	abonent.ApplyCarChanges(changes.Cars)
	abonent.ApplyTemporaryChanges(changes.Temporary, now)
	abonent.UpdatedAt = now

	if err := s.abonents.Update(ctx, abonent); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist abonent")
	}

	if s.metrics != nil {
		s.metrics.IncrementUpdated()
		s.metrics.ObserveUpdate(start)
	}

	if err := s.propagator.AbonentChanged(ctx, abonent, changes); err != nil {
		s.logger.WarnContext(ctx, "update propagation incomplete",
			"abonent_id", abonent.ID.String(),
			"error", err,
		)
		return abonent, err
	}
	return abonent, nil
}

// attributeState resolves the payload-relevant view of an abonent: display
// name plus the categories of the first family perimeter's parent object.
func (s *Service) attributeState(ctx context.Context, name string, perimeterIDs []id.PerimeterID) (diff.AttributeState, error) {
	state := diff.AttributeState{DisplayName: name}
	if len(perimeterIDs) == 0 {
		return state, nil
	}
	object, err := s.objects.ParentOfPerimeter(ctx, perimeterIDs[0])
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Perimeter without a parent object carries no categories.
			return state, nil
		}
		return state, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve access object")
	}
	state.Categories = object.Categories
	return state, nil
}

func perimeterIDsOf(grants []models.PerimeterGrant) []id.PerimeterID {
	ids := make([]id.PerimeterID, len(grants))
	for i, g := range grants {
		ids[i] = g.PerimeterID
	}
	return ids
}

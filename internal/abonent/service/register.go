package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"domopass/internal/abonent/models"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
	"domopass/pkg/platform/sentinel"
	strutil "domopass/pkg/platform/strings"
	"domopass/pkg/requestcontext"
)

// Register creates a new abonent. The desired entitlements are verified
// before anything is written; a propagation failure after the aggregate is
// persisted is returned alongside the created abonent and does not roll the
// registration back.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.Abonent, error) {
	if err := s.guard.Verify(ctx, req.Perimeters, req.CompanyID, req.TemporaryPerimeters); err != nil {
		return nil, err
	}

	existing, err := s.abonents.FindByPhone(ctx, req.CompanyID, req.Phone)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check phone registration")
	}
	if existing != nil {
		return nil, dErrors.New(dErrors.CodeDuplicateEntry, "phone number already registered")
	}

	now := requestcontext.Now(ctx)
	abonent := &models.Abonent{
		ID:        id.AbonentID(uuid.New()),
		CompanyID: req.CompanyID,
		Name:      req.Name,
		Phone:     req.Phone,
		Address:   req.Address,
		Cars:      strutil.DedupeAndTrim(req.Cars),
		Grants:    req.Perimeters,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, perimeterID := range req.TemporaryPerimeters {
		abonent.TemporaryGrants = append(abonent.TemporaryGrants, models.TemporaryGrant{PerimeterID: perimeterID})
	}

	// A platform account may not exist yet; the link is filled in by a later
	// update once the user registers.
	user, err := s.users.FindByPhone(ctx, req.Phone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve linked user")
	}
	abonent.User = user

	if err := s.abonents.Add(ctx, abonent); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeDuplicateEntry, "phone number already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist abonent")
	}

	if s.metrics != nil {
		s.metrics.IncrementRegistered()
	}

	changes := models.ChangeSets{
		Perimeters: models.PerimeterChangeSet{Added: req.Perimeters},
		Temporary:  models.TemporaryChangeSet{Added: req.TemporaryPerimeters},
	}
	if err := s.propagator.AbonentChanged(ctx, abonent, changes); err != nil {
		s.logger.WarnContext(ctx, "registration propagation incomplete",
			"abonent_id", abonent.ID.String(),
			"error", err,
		)
		return abonent, err
	}
	return abonent, nil
}

package service

import (
	"context"
	"errors"

	"domopass/internal/abonent/models"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
	"domopass/pkg/platform/sentinel"
)

// Get returns the abonent scoped to the company.
func (s *Service) Get(ctx context.Context, companyID id.CompanyID, abonentID id.AbonentID) (*models.Abonent, error) {
	abonent, err := s.abonents.FindByID(ctx, companyID, abonentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "abonent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load abonent")
	}
	return abonent, nil
}

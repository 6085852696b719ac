package handler

import (
	"strings"

	"domopass/internal/abonent/models"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
)

// GrantPayload is the wire shape of a family perimeter assignment.
type GrantPayload struct {
	PerimeterID  string `json:"perimeter_id"`
	TariffPlanID string `json:"tariff_plan_id"`
}

// RegisterRequest is the HTTP request body for POST /abonents.
type RegisterRequest struct {
	Name                string         `json:"name"`
	Phone               string         `json:"phone"`
	Address             string         `json:"address"`
	Cars                []string       `json:"cars"`
	Perimeters          []GrantPayload `json:"perimeters"`
	TemporaryPerimeters []string       `json:"temporary_perimeters"`

	// Parsed values (populated by Validate)
	parsedGrants    []models.PerimeterGrant
	parsedTemporary []id.PerimeterID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}

	r.Phone = strings.TrimSpace(r.Phone)
	if r.Phone == "" {
		return dErrors.New(dErrors.CodeValidation, "phone is required")
	}

	grants, err := parseGrants(r.Perimeters)
	if err != nil {
		return err
	}
	r.parsedGrants = grants

	temporary, err := parsePerimeterIDs(r.TemporaryPerimeters)
	if err != nil {
		return err
	}
	r.parsedTemporary = temporary

	return nil
}

// ToDomain builds the service request under the authenticated company scope.
func (r *RegisterRequest) ToDomain(companyID id.CompanyID) models.RegisterRequest {
	return models.RegisterRequest{
		CompanyID:           companyID,
		Name:                r.Name,
		Phone:               r.Phone,
		Address:             r.Address,
		Cars:                r.Cars,
		Perimeters:          r.parsedGrants,
		TemporaryPerimeters: r.parsedTemporary,
	}
}

// UpdateRequest is the HTTP request body for PUT /abonents/{abonentID}.
// It carries the full desired state; the service computes the diff.
type UpdateRequest struct {
	Name                string         `json:"name"`
	Address             string         `json:"address"`
	Cars                []string       `json:"cars"`
	Perimeters          []GrantPayload `json:"perimeters"`
	TemporaryPerimeters []string       `json:"temporary_perimeters"`

	parsedGrants    []models.PerimeterGrant
	parsedTemporary []id.PerimeterID
}

// Validate validates and parses the request.
func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}

	grants, err := parseGrants(r.Perimeters)
	if err != nil {
		return err
	}
	r.parsedGrants = grants

	temporary, err := parsePerimeterIDs(r.TemporaryPerimeters)
	if err != nil {
		return err
	}
	r.parsedTemporary = temporary

	return nil
}

// ToDomain builds the service request for the addressed abonent.
func (r *UpdateRequest) ToDomain(companyID id.CompanyID, abonentID id.AbonentID) models.UpdateRequest {
	return models.UpdateRequest{
		AbonentID:           abonentID,
		CompanyID:           companyID,
		Name:                r.Name,
		Address:             r.Address,
		Cars:                r.Cars,
		Perimeters:          r.parsedGrants,
		TemporaryPerimeters: r.parsedTemporary,
	}
}

func parseGrants(payloads []GrantPayload) ([]models.PerimeterGrant, error) {
	grants := make([]models.PerimeterGrant, 0, len(payloads))
	for _, p := range payloads {
		perimeterID, err := id.ParsePerimeterID(p.PerimeterID)
		if err != nil {
			return nil, err
		}
		tariffPlanID, err := id.ParseTariffPlanID(p.TariffPlanID)
		if err != nil {
			return nil, err
		}
		grants = append(grants, models.PerimeterGrant{
			PerimeterID:  perimeterID,
			TariffPlanID: tariffPlanID,
		})
	}
	return grants, nil
}

func parsePerimeterIDs(raw []string) ([]id.PerimeterID, error) {
	ids := make([]id.PerimeterID, 0, len(raw))
	for _, s := range raw {
		perimeterID, err := id.ParsePerimeterID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, perimeterID)
	}
	return ids, nil
}

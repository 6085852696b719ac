package handler

import (
	"time"

	"domopass/internal/abonent/models"
)

// AbonentResponse is the wire representation of an abonent aggregate.
type AbonentResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address string  `json:"address,omitempty"`
	UserID  *string `json:"user_id,omitempty"`

	Cars                []string                 `json:"cars"`
	Perimeters          []GrantPayload           `json:"perimeters"`
	TemporaryPerimeters []TemporaryGrantResponse `json:"temporary_perimeters"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TemporaryGrantResponse is the wire shape of a temporary assignment,
// including soft-removed entries.
type TemporaryGrantResponse struct {
	PerimeterID string     `json:"perimeter_id"`
	Removed     bool       `json:"removed"`
	RemovedAt   *time.Time `json:"removed_at,omitempty"`
}

// FromAbonent converts the aggregate to its response shape.
func FromAbonent(a *models.Abonent) AbonentResponse {
	resp := AbonentResponse{
		ID:        a.ID.String(),
		Name:      a.Name,
		Phone:     a.Phone,
		Address:   a.Address,
		Cars:      append([]string{}, a.Cars...),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}

	if userID, ok := a.User.Get(); ok {
		s := userID.String()
		resp.UserID = &s
	}

	resp.Perimeters = make([]GrantPayload, 0, len(a.Grants))
	for _, g := range a.Grants {
		resp.Perimeters = append(resp.Perimeters, GrantPayload{
			PerimeterID:  g.PerimeterID.String(),
			TariffPlanID: g.TariffPlanID.String(),
		})
	}

	resp.TemporaryPerimeters = make([]TemporaryGrantResponse, 0, len(a.TemporaryGrants))
	for _, g := range a.TemporaryGrants {
		entry := TemporaryGrantResponse{
			PerimeterID: g.PerimeterID.String(),
			Removed:     g.Removed,
		}
		if g.Removed {
			removedAt := g.RemovedAt
			entry.RemovedAt = &removedAt
		}
		resp.TemporaryPerimeters = append(resp.TemporaryPerimeters, entry)
	}

	return resp
}

// Package models holds the read-side catalog entities this service consults
// but does not own: perimeters, tariff plans, and access objects are
// administered by the platform's object-management tooling.
package models

import (
	id "domopass/pkg/domain"
)

// Perimeter is a physical access zone inside an access object.
type Perimeter struct {
	ID        id.PerimeterID
	ObjectID  id.ObjectID
	CompanyID id.CompanyID
	Name      string
}

// TariffPlan is a billing policy a family grant is registered under.
type TariffPlan struct {
	ID        id.TariffPlanID
	CompanyID id.CompanyID
	Name      string
}

// AccessObject is the building or territory that owns perimeters. Its display
// name and categories are embedded into composite-key payloads for offline
// verification.
type AccessObject struct {
	ID          id.ObjectID
	CompanyID   id.CompanyID
	DisplayName string
	Categories  []string
}

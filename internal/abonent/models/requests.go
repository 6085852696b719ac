package models

import (
	id "domopass/pkg/domain"
)

// RegisterRequest carries a validated registration. Malformed input is
// rejected by the transport layer before the service runs.
type RegisterRequest struct {
	CompanyID id.CompanyID
	Name      string
	Phone     string
	Address   string
	Cars      []string

	Perimeters          []PerimeterGrant
	TemporaryPerimeters []id.PerimeterID
}

// UpdateRequest carries the full desired state of an abonent. The service
// diffs it against the stored aggregate; fields identical on both sides
// produce no changes.
type UpdateRequest struct {
	AbonentID id.AbonentID
	CompanyID id.CompanyID
	Name      string
	Address   string
	Cars      []string

	Perimeters          []PerimeterGrant
	TemporaryPerimeters []id.PerimeterID
}

// UnregisterRequest removes an abonent entirely.
type UnregisterRequest struct {
	AbonentID id.AbonentID
	CompanyID id.CompanyID
}

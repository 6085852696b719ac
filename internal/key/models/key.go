// Package models defines the composite-key view this service synchronizes.
// The key lifecycle (issuance, revocation, physical provisioning) belongs to
// the issuance engine; this module reads identity/template/owner metadata and
// writes the embedded payload mapping, nothing else.
package models

import (
	id "domopass/pkg/domain"
)

// Kind classifies a composite key.
type Kind string

const (
	KindFamily    Kind = "family"
	KindTemporary Kind = "temporary"
	// KindService keys (couriers, maintenance) are issued outside abonent
	// administration and never synchronized here.
	KindService Kind = "service"
)

// Synchronized reports whether abonent changes must be reflected into keys
// of this kind.
func (k Kind) Synchronized() bool {
	return k == KindFamily || k == KindTemporary
}

// CompositeKey is an issued access token carrying an embedded payload
// snapshot for offline verification.
//
// A key with a ParentID is a member key: a household member's copy derived
// from the owner's key. Member keys follow their parent during
// synchronization.
type CompositeKey struct {
	ID         id.KeyID
	OwnerID    id.UserID
	CompanyID  id.CompanyID
	Kind       Kind
	TemplateID id.TemplateID
	ParentID   id.Optional[id.KeyID]
	Payload    Payload
}

// Template binds keys to a perimeter and flags capabilities.
type Template struct {
	ID             id.TemplateID
	PerimeterID    id.PerimeterID
	ParkingEnabled bool
}

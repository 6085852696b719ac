// Package domain defines the typed identifiers shared across modules.
//
// Every aggregate and catalog entity gets its own UUID-backed type so the
// compiler rejects cross-entity mixups (passing a PerimeterID where a
// TariffPlanID is expected). Parse functions enforce the invariant that ids
// are valid, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "domopass/pkg/domain-errors"
)

type (
	// AbonentID identifies a resident administered by a service company.
	AbonentID uuid.UUID
	// CompanyID identifies the service company scope of an entity.
	CompanyID uuid.UUID
	// PerimeterID identifies a physical access zone.
	PerimeterID uuid.UUID
	// TariffPlanID identifies a tariff policy a perimeter grant is billed under.
	TariffPlanID uuid.UUID
	// KeyID identifies an issued composite key.
	KeyID uuid.UUID
	// UserID identifies a platform user account linked to an abonent.
	UserID uuid.UUID
	// TemplateID identifies a key template bound to a perimeter.
	TemplateID uuid.UUID
	// ObjectID identifies an access object (building/territory) owning perimeters.
	ObjectID uuid.UUID
)

func parse(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "malformed "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be the nil UUID")
	}
	return u, nil
}

func ParseAbonentID(s string) (AbonentID, error) {
	u, err := parse("abonent", s)
	return AbonentID(u), err
}

func ParseCompanyID(s string) (CompanyID, error) {
	u, err := parse("company", s)
	return CompanyID(u), err
}

func ParsePerimeterID(s string) (PerimeterID, error) {
	u, err := parse("perimeter", s)
	return PerimeterID(u), err
}

func ParseTariffPlanID(s string) (TariffPlanID, error) {
	u, err := parse("tariff plan", s)
	return TariffPlanID(u), err
}

func ParseKeyID(s string) (KeyID, error) {
	u, err := parse("key", s)
	return KeyID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parse("user", s)
	return UserID(u), err
}

func ParseTemplateID(s string) (TemplateID, error) {
	u, err := parse("template", s)
	return TemplateID(u), err
}

func ParseObjectID(s string) (ObjectID, error) {
	u, err := parse("object", s)
	return ObjectID(u), err
}

func (id AbonentID) String() string    { return uuid.UUID(id).String() }
func (id CompanyID) String() string    { return uuid.UUID(id).String() }
func (id PerimeterID) String() string  { return uuid.UUID(id).String() }
func (id TariffPlanID) String() string { return uuid.UUID(id).String() }
func (id KeyID) String() string        { return uuid.UUID(id).String() }
func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id TemplateID) String() string   { return uuid.UUID(id).String() }
func (id ObjectID) String() string     { return uuid.UUID(id).String() }

func (id AbonentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id CompanyID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id PerimeterID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id TariffPlanID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id KeyID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id TemplateID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ObjectID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

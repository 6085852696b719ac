// Package propagation converts computed change sets into typed events and
// fans them out over the in-process bus. Emission is skipped entirely for an
// empty change set, so subscribers only ever observe real mutations.
package propagation

import (
	"domopass/internal/abonent/models"
	id "domopass/pkg/domain"
)

// Signals routed over the bus.
const (
	SignalPerimetersAdded          = "abonent.perimeters.added"
	SignalPerimetersRemoved        = "abonent.perimeters.removed"
	SignalPerimetersTariffChanged  = "abonent.perimeters.tariff_changed"
	SignalTemporaryPerimetersAdded = "abonent.perimeters.temporary_added"
	SignalCarsChanged              = "abonent.cars.changed"
	SignalAttributesChanged        = "abonent.attributes.changed"
)

// Base carries the fields every propagation event shares. PerimeterIDs is
// the perimeter scope subscribers resolve credentials against.
type Base struct {
	CompanyID    id.CompanyID
	User         id.Optional[id.UserID]
	PerimeterIDs []id.PerimeterID
}

// Snapshot is the payload-relevant view of the first referenced perimeter's
// parent access object, resolved at emission time.
type Snapshot struct {
	DisplayName string
	Categories  []string
}

// PerimetersAdded fires when family grants were added.
type PerimetersAdded struct {
	Base
	Grants   []models.PerimeterGrant
	Snapshot Snapshot
}

func (PerimetersAdded) Signal() string { return SignalPerimetersAdded }

// PerimetersRemoved fires when family grants were removed, including the
// removal of every family grant on unregistration.
type PerimetersRemoved struct {
	Base
}

func (PerimetersRemoved) Signal() string { return SignalPerimetersRemoved }

// PerimetersTariffChanged fires when grants kept their perimeter but moved
// to a different tariff plan.
type PerimetersTariffChanged struct {
	Base
	Changed []models.PerimeterGrant
}

func (PerimetersTariffChanged) Signal() string { return SignalPerimetersTariffChanged }

// TemporaryPerimetersAdded fires when temporary grants were added.
type TemporaryPerimetersAdded struct {
	Base
	Snapshot Snapshot
}

func (TemporaryPerimetersAdded) Signal() string { return SignalTemporaryPerimetersAdded }

// CarsChanged fires when the car list changed. Only emitted for abonents
// with a linked user, since payload reconciliation needs one.
type CarsChanged struct {
	Base
	Changes models.CarChangeSet
}

func (CarsChanged) Signal() string { return SignalCarsChanged }

// AttributesChanged fires when payload-relevant attributes changed. Only
// emitted for abonents with a linked user.
type AttributesChanged struct {
	Base
	Changes  []models.AttributeChange
	Snapshot Snapshot
}

func (AttributesChanged) Signal() string { return SignalAttributesChanged }

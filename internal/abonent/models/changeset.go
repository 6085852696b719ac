package models

import (
	id "domopass/pkg/domain"
)

// Change sets are transient: computed fresh per mutation from a consistent
// snapshot of the aggregate, handed to the propagator, then discarded. They
// are never persisted.

// PerimeterChangeSet describes the family-grant diff between the stored
// aggregate and a desired grant list.
type PerimeterChangeSet struct {
	Added         []PerimeterGrant
	RemovedIDs    []id.PerimeterID
	TariffChanged []PerimeterGrant
}

func (cs PerimeterChangeSet) Empty() bool {
	return len(cs.Added) == 0 && len(cs.RemovedIDs) == 0 && len(cs.TariffChanged) == 0
}

// CarChangeSet is a set difference over exact car-plate strings.
type CarChangeSet struct {
	Added   []string
	Deleted []string
}

func (cs CarChangeSet) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Deleted) == 0
}

// TemporaryChangeSet names perimeters whose temporary grants are to be
// created (Added) or soft-removed (Removed).
type TemporaryChangeSet struct {
	Added   []id.PerimeterID
	Removed []id.PerimeterID
}

func (cs TemporaryChangeSet) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Removed) == 0
}

// AttributeField names a payload-relevant abonent attribute.
type AttributeField string

const (
	FieldDisplayName AttributeField = "display_name"
	FieldCategories  AttributeField = "categories"
)

// AttributeChange is one payload-relevant delta. Exactly one of Name or
// Categories is meaningful, selected by Field.
type AttributeChange struct {
	Field      AttributeField
	Name       string
	Categories []string
}

// AttributeChangeSet lists the payload-relevant deltas of an update.
type AttributeChangeSet struct {
	Changes []AttributeChange
}

func (cs AttributeChangeSet) Empty() bool {
	return len(cs.Changes) == 0
}

// ChangeSets bundles everything one mutation produced.
type ChangeSets struct {
	Perimeters PerimeterChangeSet
	Cars       CarChangeSet
	Temporary  TemporaryChangeSet
	Attributes AttributeChangeSet
}

func (cs ChangeSets) Empty() bool {
	return cs.Perimeters.Empty() && cs.Cars.Empty() && cs.Temporary.Empty() && cs.Attributes.Empty()
}

// PatchCarList applies a car diff to a stored list: exact-string removal
// first, then appends. Shared between the aggregate and the key payload
// patcher so both sides agree on car identity.
func PatchCarList(stored []string, cs CarChangeSet) []string {
	deleted := make(map[string]struct{}, len(cs.Deleted))
	for _, car := range cs.Deleted {
		deleted[car] = struct{}{}
	}
	next := make([]string, 0, len(stored)+len(cs.Added))
	for _, car := range stored {
		if _, drop := deleted[car]; drop {
			continue
		}
		next = append(next, car)
	}
	return append(next, cs.Added...)
}

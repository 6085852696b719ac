// Package diff computes change sets between a stored abonent aggregate and a
// desired entitlement state. All functions are pure: no I/O, deterministic
// given their inputs, so they are safe to call on a snapshot taken before the
// mutation is applied.
package diff

import (
	"slices"

	"domopass/internal/abonent/models"
	id "domopass/pkg/domain"
)

// Perimeters matches family grants by perimeter id.
//
//	added         = desired \ existing (by id)
//	removedIDs    = ids(existing \ desired)
//	tariffChanged = present on both sides with differing tariff plan
//
// Entries identical on both sides produce nothing.
func Perimeters(existing, desired []models.PerimeterGrant) models.PerimeterChangeSet {
	current := make(map[id.PerimeterID]id.TariffPlanID, len(existing))
	for _, g := range existing {
		current[g.PerimeterID] = g.TariffPlanID
	}
	wanted := make(map[id.PerimeterID]struct{}, len(desired))

	var cs models.PerimeterChangeSet
	for _, g := range desired {
		wanted[g.PerimeterID] = struct{}{}
		tariffID, ok := current[g.PerimeterID]
		switch {
		case !ok:
			cs.Added = append(cs.Added, g)
		case tariffID != g.TariffPlanID:
			cs.TariffChanged = append(cs.TariffChanged, g)
		}
	}
	for _, g := range existing {
		if _, keep := wanted[g.PerimeterID]; !keep {
			cs.RemovedIDs = append(cs.RemovedIDs, g.PerimeterID)
		}
	}
	return cs
}

// Cars is a set difference over exact plate strings. Duplicates within one
// list carry no meaning; membership decides everything.
func Cars(existing, desired []string) models.CarChangeSet {
	current := make(map[string]struct{}, len(existing))
	for _, car := range existing {
		current[car] = struct{}{}
	}
	wanted := make(map[string]struct{}, len(desired))

	var cs models.CarChangeSet
	for _, car := range desired {
		if _, dup := wanted[car]; dup {
			continue
		}
		wanted[car] = struct{}{}
		if _, ok := current[car]; !ok {
			cs.Added = append(cs.Added, car)
		}
	}
	seen := make(map[string]struct{}, len(existing))
	for _, car := range existing {
		if _, dup := seen[car]; dup {
			continue
		}
		seen[car] = struct{}{}
		if _, keep := wanted[car]; !keep {
			cs.Deleted = append(cs.Deleted, car)
		}
	}
	return cs
}

// Temporary diffs the currently active temporary grants against the desired
// perimeter set. Desired perimeters without an active grant become new
// records; active grants absent from desired are marked for soft removal.
// Removed records never resurface here: only active grants participate.
func Temporary(existingActive []models.TemporaryGrant, desired []id.PerimeterID) models.TemporaryChangeSet {
	active := make(map[id.PerimeterID]struct{}, len(existingActive))
	for _, g := range existingActive {
		active[g.PerimeterID] = struct{}{}
	}
	wanted := make(map[id.PerimeterID]struct{}, len(desired))

	var cs models.TemporaryChangeSet
	for _, perimeterID := range desired {
		if _, dup := wanted[perimeterID]; dup {
			continue
		}
		wanted[perimeterID] = struct{}{}
		if _, ok := active[perimeterID]; !ok {
			cs.Added = append(cs.Added, perimeterID)
		}
	}
	for _, g := range existingActive {
		if _, keep := wanted[g.PerimeterID]; !keep {
			cs.Removed = append(cs.Removed, g.PerimeterID)
		}
	}
	return cs
}

// AttributeState is the payload-relevant view of an abonent: the display
// name embedded into key payloads and the categories of the first family
// perimeter's parent access object. The caller resolves categories through
// the object catalog; this function stays free of I/O.
type AttributeState struct {
	DisplayName string
	Categories  []string
}

// Attributes yields the payload-relevant deltas between two attribute
// states. Empty when nothing payload-relevant changed.
func Attributes(existing, desired AttributeState) models.AttributeChangeSet {
	var cs models.AttributeChangeSet
	if existing.DisplayName != desired.DisplayName {
		cs.Changes = append(cs.Changes, models.AttributeChange{
			Field: models.FieldDisplayName,
			Name:  desired.DisplayName,
		})
	}
	if !slices.Equal(existing.Categories, desired.Categories) {
		cs.Changes = append(cs.Changes, models.AttributeChange{
			Field:      models.FieldCategories,
			Categories: desired.Categories,
		})
	}
	return cs
}

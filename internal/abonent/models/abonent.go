package models

import (
	"time"

	id "domopass/pkg/domain"
)

// Abonent is the aggregate root for a resident administered by a service
// company.
//
// Invariants:
//   - Perimeter ids are unique within Grants
//   - At most one active (non-removed) TemporaryGrant per perimeter id
//   - TemporaryGrants are append-only: removal is a soft, one-way transition
//
// The aggregate is owned exclusively by this module while held in memory;
// concurrent edits of the same abonent are an optimistic-concurrency concern
// of the persistence layer, not of this type.
type Abonent struct {
	ID        id.AbonentID
	CompanyID id.CompanyID
	Name      string
	Phone     string
	Address   string

	// User is the linked platform account, absent until a matching account
	// exists. Without it no composite key can be resolved for this abonent.
	User id.Optional[id.UserID]

	Cars            []string
	Grants          []PerimeterGrant
	TemporaryGrants []TemporaryGrant

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PerimeterGrant is a permanent (family) assignment to a perimeter under a
// tariff plan.
type PerimeterGrant struct {
	PerimeterID  id.PerimeterID
	TariffPlanID id.TariffPlanID
}

// TemporaryGrant is a time-boxed assignment to a perimeter. Once created it
// is never physically deleted; Removed flips exactly once.
type TemporaryGrant struct {
	PerimeterID id.PerimeterID
	Removed     bool
	RemovedAt   time.Time
}

// Remove soft-deletes the grant. Removing an already-removed grant is a
// no-op so the transition stays one-way.
func (g *TemporaryGrant) Remove(now time.Time) {
	if g.Removed {
		return
	}
	g.Removed = true
	g.RemovedAt = now
}

// ActiveTemporaryGrants returns the non-removed temporary grants.
func (a *Abonent) ActiveTemporaryGrants() []TemporaryGrant {
	active := make([]TemporaryGrant, 0, len(a.TemporaryGrants))
	for _, g := range a.TemporaryGrants {
		if !g.Removed {
			active = append(active, g)
		}
	}
	return active
}

// FamilyPerimeterIDs returns the perimeter ids of the family grants,
// deduplicated in grant order.
func (a *Abonent) FamilyPerimeterIDs() []id.PerimeterID {
	seen := make(map[id.PerimeterID]struct{}, len(a.Grants))
	ids := make([]id.PerimeterID, 0, len(a.Grants))
	for _, g := range a.Grants {
		if _, ok := seen[g.PerimeterID]; ok {
			continue
		}
		seen[g.PerimeterID] = struct{}{}
		ids = append(ids, g.PerimeterID)
	}
	return ids
}

// ApplyPerimeterChanges replaces the family grant list according to the
// change set: removed grants are dropped, tariff changes applied in place,
// additions appended.
func (a *Abonent) ApplyPerimeterChanges(cs PerimeterChangeSet) {
	if cs.Empty() {
		return
	}

	removed := make(map[id.PerimeterID]struct{}, len(cs.RemovedIDs))
	for _, perimeterID := range cs.RemovedIDs {
		removed[perimeterID] = struct{}{}
	}
	retariffed := make(map[id.PerimeterID]id.TariffPlanID, len(cs.TariffChanged))
	for _, g := range cs.TariffChanged {
		retariffed[g.PerimeterID] = g.TariffPlanID
	}

	next := make([]PerimeterGrant, 0, len(a.Grants)+len(cs.Added))
	for _, g := range a.Grants {
		if _, drop := removed[g.PerimeterID]; drop {
			continue
		}
		if tariffID, ok := retariffed[g.PerimeterID]; ok {
			g.TariffPlanID = tariffID
		}
		next = append(next, g)
	}
	a.Grants = append(next, cs.Added...)
}

// ApplyCarChanges applies the car diff to the stored list: exact-string
// removal first, then appends.
func (a *Abonent) ApplyCarChanges(cs CarChangeSet) {
	if cs.Empty() {
		return
	}
	a.Cars = PatchCarList(a.Cars, cs)
}

// ApplyTemporaryChanges soft-removes grants named by the change set and
// appends the added ones as active records.
func (a *Abonent) ApplyTemporaryChanges(cs TemporaryChangeSet, now time.Time) {
	if cs.Empty() {
		return
	}

	removed := make(map[id.PerimeterID]struct{}, len(cs.Removed))
	for _, perimeterID := range cs.Removed {
		removed[perimeterID] = struct{}{}
	}
	for i := range a.TemporaryGrants {
		g := &a.TemporaryGrants[i]
		if g.Removed {
			continue
		}
		if _, drop := removed[g.PerimeterID]; drop {
			g.Remove(now)
		}
	}
	for _, perimeterID := range cs.Added {
		a.TemporaryGrants = append(a.TemporaryGrants, TemporaryGrant{PerimeterID: perimeterID})
	}
}

// RemoveTemporaryGrant soft-deletes the active temporary grant for the
// perimeter. Reports whether a grant transitioned; a miss (or an already
// removed grant) is not an error.
func (a *Abonent) RemoveTemporaryGrant(perimeterID id.PerimeterID, now time.Time) bool {
	for i := range a.TemporaryGrants {
		g := &a.TemporaryGrants[i]
		if g.PerimeterID == perimeterID && !g.Removed {
			g.Remove(now)
			return true
		}
	}
	return false
}

// RemoveFamilyGrant drops the family grant for the perimeter. Reports whether
// a grant was removed.
func (a *Abonent) RemoveFamilyGrant(perimeterID id.PerimeterID) bool {
	for i, g := range a.Grants {
		if g.PerimeterID == perimeterID {
			a.Grants = append(a.Grants[:i], a.Grants[i+1:]...)
			return true
		}
	}
	return false
}

package propagation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"domopass/internal/abonent/models"
	catalogmodels "domopass/internal/catalog/models"
	"domopass/internal/catalog/store/object"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
	"domopass/pkg/platform/bus"
)

// recordingDispatcher captures dispatched events and can fail per signal.
type recordingDispatcher struct {
	events  []bus.Event
	failFor map[string]error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, event bus.Event) error {
	d.events = append(d.events, event)
	if err, ok := d.failFor[event.Signal()]; ok {
		return err
	}
	return nil
}

func (d *recordingDispatcher) signals() []string {
	out := make([]string, len(d.events))
	for i, e := range d.events {
		out[i] = e.Signal()
	}
	return out
}

type PropagatorSuite struct {
	suite.Suite
	ctx        context.Context
	dispatcher *recordingDispatcher
	objects    *object.InMemory
	propagator *Propagator
	company    id.CompanyID
}

func TestPropagatorSuite(t *testing.T) {
	suite.Run(t, new(PropagatorSuite))
}

func (s *PropagatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.dispatcher = &recordingDispatcher{failFor: map[string]error{}}
	s.objects = object.NewInMemory()
	s.propagator = New(s.dispatcher, s.objects)
	s.company = id.CompanyID(uuid.New())
}

func (s *PropagatorSuite) newAbonent(grants ...models.PerimeterGrant) *models.Abonent {
	return &models.Abonent{
		ID:        id.AbonentID(uuid.New()),
		CompanyID: s.company,
		Name:      "Resident",
		User:      id.Some(id.UserID(uuid.New())),
		Grants:    grants,
	}
}

func newGrant() models.PerimeterGrant {
	return models.PerimeterGrant{
		PerimeterID:  id.PerimeterID(uuid.New()),
		TariffPlanID: id.TariffPlanID(uuid.New()),
	}
}

// TestEmptyChangeSetsEmitNothing verifies the skip rule for empty sets.
func (s *PropagatorSuite) TestEmptyChangeSetsEmitNothing() {
	err := s.propagator.AbonentChanged(s.ctx, s.newAbonent(newGrant()), models.ChangeSets{})
	s.Require().NoError(err)
	s.Empty(s.dispatcher.events)
}

// TestTariffOnlyChange verifies a tariff-only update produces exactly one
// PerimetersTariffChanged event and no Added or Removed events.
func (s *PropagatorSuite) TestTariffOnlyChange() {
	grant := newGrant()
	abonent := s.newAbonent(grant)

	changed := models.PerimeterGrant{PerimeterID: grant.PerimeterID, TariffPlanID: id.TariffPlanID(uuid.New())}
	err := s.propagator.AbonentChanged(s.ctx, abonent, models.ChangeSets{
		Perimeters: models.PerimeterChangeSet{TariffChanged: []models.PerimeterGrant{changed}},
	})
	s.Require().NoError(err)

	s.Require().Len(s.dispatcher.events, 1)
	event, ok := s.dispatcher.events[0].(PerimetersTariffChanged)
	s.Require().True(ok)
	s.Equal([]models.PerimeterGrant{changed}, event.Changed)
	s.Equal(s.company, event.CompanyID)
}

// TestAddedCarriesSnapshot verifies the payload snapshot comes from the
// first added perimeter's parent object.
func (s *PropagatorSuite) TestAddedCarriesSnapshot() {
	grant := newGrant()
	s.objects.Seed(&catalogmodels.AccessObject{
		ID:          id.ObjectID(uuid.New()),
		CompanyID:   s.company,
		DisplayName: "Building 4",
		Categories:  []string{"gate", "parking"},
	}, grant.PerimeterID)

	abonent := s.newAbonent(grant)
	err := s.propagator.AbonentChanged(s.ctx, abonent, models.ChangeSets{
		Perimeters: models.PerimeterChangeSet{Added: []models.PerimeterGrant{grant}},
	})
	s.Require().NoError(err)

	s.Require().Len(s.dispatcher.events, 1)
	event := s.dispatcher.events[0].(PerimetersAdded)
	s.Equal("Building 4", event.Snapshot.DisplayName)
	s.Equal([]string{"gate", "parking"}, event.Snapshot.Categories)
}

// TestSnapshotDegradesWithoutParentObject verifies a perimeter with no
// parent object still produces the event, with an empty snapshot.
func (s *PropagatorSuite) TestSnapshotDegradesWithoutParentObject() {
	grant := newGrant()
	err := s.propagator.AbonentChanged(s.ctx, s.newAbonent(grant), models.ChangeSets{
		Perimeters: models.PerimeterChangeSet{Added: []models.PerimeterGrant{grant}},
	})
	s.Require().NoError(err)
	s.Require().Len(s.dispatcher.events, 1)
	s.Equal(Snapshot{}, s.dispatcher.events[0].(PerimetersAdded).Snapshot)
}

// TestPayloadEventsRequireLinkedUser verifies car and attribute events are
// withheld when no user is linked, while perimeter events still fire.
func (s *PropagatorSuite) TestPayloadEventsRequireLinkedUser() {
	grant := newGrant()
	abonent := s.newAbonent(grant)
	abonent.User = id.None[id.UserID]()

	err := s.propagator.AbonentChanged(s.ctx, abonent, models.ChangeSets{
		Perimeters: models.PerimeterChangeSet{Added: []models.PerimeterGrant{grant}},
		Cars:       models.CarChangeSet{Added: []string{"A123BC"}},
		Attributes: models.AttributeChangeSet{Changes: []models.AttributeChange{
			{Field: models.FieldDisplayName, Name: "New Name"},
		}},
	})
	s.Require().NoError(err)
	s.Equal([]string{SignalPerimetersAdded}, s.dispatcher.signals())
}

// TestAllEventKindsForFullChange verifies a mutation touching every change
// set emits one event per set.
func (s *PropagatorSuite) TestAllEventKindsForFullChange() {
	kept := newGrant()
	added := newGrant()
	abonent := s.newAbonent(kept, added)
	temporaryID := id.PerimeterID(uuid.New())
	abonent.TemporaryGrants = []models.TemporaryGrant{{PerimeterID: temporaryID}}

	err := s.propagator.AbonentChanged(s.ctx, abonent, models.ChangeSets{
		Perimeters: models.PerimeterChangeSet{
			Added:         []models.PerimeterGrant{added},
			RemovedIDs:    []id.PerimeterID{id.PerimeterID(uuid.New())},
			TariffChanged: []models.PerimeterGrant{kept},
		},
		Cars:      models.CarChangeSet{Deleted: []string{"A123BC"}},
		Temporary: models.TemporaryChangeSet{Added: []id.PerimeterID{temporaryID}},
		Attributes: models.AttributeChangeSet{Changes: []models.AttributeChange{
			{Field: models.FieldDisplayName, Name: "Renamed"},
		}},
	})
	s.Require().NoError(err)
	s.ElementsMatch([]string{
		SignalPerimetersAdded,
		SignalPerimetersRemoved,
		SignalPerimetersTariffChanged,
		SignalTemporaryPerimetersAdded,
		SignalCarsChanged,
		SignalAttributesChanged,
	}, s.dispatcher.signals())
}

// TestFailuresAggregateWithoutShortCircuit verifies one failing event does
// not suppress the remaining emissions.
func (s *PropagatorSuite) TestFailuresAggregateWithoutShortCircuit() {
	s.dispatcher.failFor[SignalPerimetersRemoved] = errors.New("subscriber down")

	grant := newGrant()
	err := s.propagator.AbonentChanged(s.ctx, s.newAbonent(grant), models.ChangeSets{
		Perimeters: models.PerimeterChangeSet{
			RemovedIDs: []id.PerimeterID{id.PerimeterID(uuid.New())},
		},
		Cars: models.CarChangeSet{Added: []string{"A123BC"}},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeHandlerFailure))
	s.ElementsMatch([]string{SignalPerimetersRemoved, SignalCarsChanged}, s.dispatcher.signals())
}

// TestAbonentRemoved verifies unregistration maps to a removal event.
func (s *PropagatorSuite) TestAbonentRemoved() {
	perimeterIDs := []id.PerimeterID{id.PerimeterID(uuid.New()), id.PerimeterID(uuid.New())}
	user := id.Some(id.UserID(uuid.New()))

	err := s.propagator.AbonentRemoved(s.ctx, s.company, user, perimeterIDs)
	s.Require().NoError(err)

	s.Require().Len(s.dispatcher.events, 1)
	event := s.dispatcher.events[0].(PerimetersRemoved)
	s.Equal(perimeterIDs, event.PerimeterIDs)
	s.Equal(user, event.User)

	s.dispatcher.events = nil
	s.Require().NoError(s.propagator.AbonentRemoved(s.ctx, s.company, user, nil))
	s.Empty(s.dispatcher.events, "an abonent without family grants emits nothing")
}

package propagation

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"domopass/internal/abonent/models"
	catalogmodels "domopass/internal/catalog/models"
	propmetrics "domopass/internal/propagation/metrics"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
	"domopass/pkg/platform/bus"
	"domopass/pkg/platform/sentinel"
)

// Dispatcher fans a single event out to its subscribers. Satisfied by
// bus.Bus.
type Dispatcher interface {
	Dispatch(ctx context.Context, event bus.Event) error
}

// ObjectCatalog resolves the parent access object of a perimeter for payload
// snapshots.
type ObjectCatalog interface {
	ParentOfPerimeter(ctx context.Context, perimeterID id.PerimeterID) (*catalogmodels.AccessObject, error)
}

// Propagator turns change sets into typed events. One event per non-empty
// change set; empty sets emit nothing. All events for a mutation are
// dispatched even when an earlier one fails, and failures are aggregated
// into a single HandlerFailure result.
type Propagator struct {
	dispatcher Dispatcher
	objects    ObjectCatalog
	logger     *slog.Logger
	metrics    *propmetrics.Metrics
	tracer     trace.Tracer
}

type Option func(p *Propagator)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Propagator) {
		p.logger = logger
	}
}

func WithMetrics(m *propmetrics.Metrics) Option {
	return func(p *Propagator) {
		p.metrics = m
	}
}

// New constructs a Propagator.
func New(dispatcher Dispatcher, objects ObjectCatalog, opts ...Option) *Propagator {
	p := &Propagator{
		dispatcher: dispatcher,
		objects:    objects,
		logger:     slog.Default(),
		tracer:     otel.Tracer("domopass/propagation"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AbonentChanged emits one event per non-empty change set. Car and attribute
// events additionally require a linked user, since without one no composite
// key can be resolved downstream.
func (p *Propagator) AbonentChanged(ctx context.Context, abonent *models.Abonent, changes models.ChangeSets) error {
	ctx, span := p.tracer.Start(ctx, "propagation.AbonentChanged",
		trace.WithAttributes(
			attribute.String("abonent.id", abonent.ID.String()),
			attribute.String("company.id", abonent.CompanyID.String()),
		),
	)
	defer span.End()

	base := Base{
		CompanyID:    abonent.CompanyID,
		User:         abonent.User,
		PerimeterIDs: perimeterScope(abonent),
	}

	var agg dErrors.Aggregate

	if len(changes.Perimeters.Added) > 0 {
		event := PerimetersAdded{Base: base, Grants: changes.Perimeters.Added}
		event.Snapshot = p.snapshot(ctx, changes.Perimeters.Added[0].PerimeterID)
		agg.Add(p.emit(ctx, event))
	}
	if len(changes.Perimeters.RemovedIDs) > 0 {
		removed := base
		removed.PerimeterIDs = changes.Perimeters.RemovedIDs
		agg.Add(p.emit(ctx, PerimetersRemoved{Base: removed}))
	}
	if len(changes.Perimeters.TariffChanged) > 0 {
		agg.Add(p.emit(ctx, PerimetersTariffChanged{Base: base, Changed: changes.Perimeters.TariffChanged}))
	}
	if len(changes.Temporary.Added) > 0 {
		event := TemporaryPerimetersAdded{Base: base}
		event.Snapshot = p.snapshot(ctx, changes.Temporary.Added[0])
		agg.Add(p.emit(ctx, event))
	}

	if !abonent.User.IsPresent() {
		if !changes.Cars.Empty() || !changes.Attributes.Empty() {
			p.logger.DebugContext(ctx, "skipping payload events, abonent has no linked user",
				"abonent_id", abonent.ID.String(),
			)
		}
		return p.result(agg)
	}

	if !changes.Cars.Empty() {
		agg.Add(p.emit(ctx, CarsChanged{Base: base, Changes: changes.Cars}))
	}
	if !changes.Attributes.Empty() {
		event := AttributesChanged{Base: base, Changes: changes.Attributes.Changes}
		if len(base.PerimeterIDs) > 0 {
			event.Snapshot = p.snapshot(ctx, base.PerimeterIDs[0])
		}
		agg.Add(p.emit(ctx, event))
	}
	return p.result(agg)
}

// AbonentRemoved emits a PerimetersRemoved event covering every family
// perimeter of the deleted abonent.
func (p *Propagator) AbonentRemoved(ctx context.Context, companyID id.CompanyID, user id.Optional[id.UserID], perimeterIDs []id.PerimeterID) error {
	ctx, span := p.tracer.Start(ctx, "propagation.AbonentRemoved",
		trace.WithAttributes(attribute.String("company.id", companyID.String())),
	)
	defer span.End()

	if len(perimeterIDs) == 0 {
		return nil
	}

	var agg dErrors.Aggregate
	agg.Add(p.emit(ctx, PerimetersRemoved{Base: Base{
		CompanyID:    companyID,
		User:         user,
		PerimeterIDs: perimeterIDs,
	}}))
	return p.result(agg)
}

func (p *Propagator) emit(ctx context.Context, event bus.Event) error {
	if p.metrics != nil {
		p.metrics.IncrementEmitted(event.Signal())
	}
	err := p.dispatcher.Dispatch(ctx, event)
	if err != nil && p.metrics != nil {
		p.metrics.IncrementFailures(event.Signal())
	}
	return err
}

func (p *Propagator) result(agg dErrors.Aggregate) error {
	if agg.Count() == 0 {
		return nil
	}
	return dErrors.Wrap(agg.Err(), dErrors.CodeHandlerFailure, "propagation incomplete")
}

// snapshot resolves the payload view of the perimeter's parent object. A
// perimeter without a parent object yields an empty snapshot; a failing
// catalog is logged and degrades to an empty snapshot rather than blocking
// the event.
func (p *Propagator) snapshot(ctx context.Context, perimeterID id.PerimeterID) Snapshot {
	object, err := p.objects.ParentOfPerimeter(ctx, perimeterID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			p.logger.WarnContext(ctx, "failed to resolve payload snapshot",
				"perimeter_id", perimeterID.String(),
				"error", err,
			)
		}
		return Snapshot{}
	}
	return Snapshot{
		DisplayName: object.DisplayName,
		Categories:  object.Categories,
	}
}

// perimeterScope is the union of family and active temporary perimeter ids,
// deduplicated in grant order.
func perimeterScope(abonent *models.Abonent) []id.PerimeterID {
	ids := abonent.FamilyPerimeterIDs()
	seen := make(map[id.PerimeterID]struct{}, len(ids))
	for _, perimeterID := range ids {
		seen[perimeterID] = struct{}{}
	}
	for _, grant := range abonent.ActiveTemporaryGrants() {
		if _, ok := seen[grant.PerimeterID]; ok {
			continue
		}
		seen[grant.PerimeterID] = struct{}{}
		ids = append(ids, grant.PerimeterID)
	}
	return ids
}

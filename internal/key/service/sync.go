// Package service implements composite-key synchronization: keeping the
// payload embedded in issued keys consistent with the abonent aggregate by
// reacting to attribute and car-list change events.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	abonentmodels "domopass/internal/abonent/models"
	keymetrics "domopass/internal/key/metrics"
	"domopass/internal/key/models"
	"domopass/internal/propagation"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
	"domopass/pkg/platform/bus"
)

// KeyStore reads key metadata and persists payloads.
type KeyStore interface {
	ListByOwner(ctx context.Context, companyID id.CompanyID, ownerID id.UserID) ([]*models.CompositeKey, error)
	ListMembers(ctx context.Context, parentIDs []id.KeyID) ([]*models.CompositeKey, error)
	UpdatePayload(ctx context.Context, keyID id.KeyID, payload models.Payload) error
}

// TemplateCatalog resolves the templates bound to a perimeter set.
type TemplateCatalog interface {
	FindByPerimeters(ctx context.Context, perimeterIDs []id.PerimeterID) ([]*models.Template, error)
}

// Renewal submits a reissue request for one key. Submission is idempotent;
// the issuance engine decides whether reissue is actually necessary.
type Renewal interface {
	Submit(ctx context.Context, userID id.UserID, keyID id.KeyID) error
}

const defaultConcurrency = 8

// Synchronizer reconciles key payloads with the abonent aggregate.
//
// Fan-out over the resolved key set is bounded and independent per key: one
// key's failure never blocks its siblings. Item failures are aggregated into
// a HandlerFailure result so the caller sees the partial outcome; only a
// failing resolution step fails the batch outright.
type Synchronizer struct {
	keys        KeyStore
	templates   TemplateCatalog
	renewal     Renewal
	logger      *slog.Logger
	metrics     *keymetrics.Metrics
	tracer      trace.Tracer
	concurrency int
}

type Option func(s *Synchronizer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

func WithMetrics(m *keymetrics.Metrics) Option {
	return func(s *Synchronizer) {
		s.metrics = m
	}
}

// WithConcurrency bounds per-key fan-out.
func WithConcurrency(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New constructs a Synchronizer.
func New(keys KeyStore, templates TemplateCatalog, renewal Renewal, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		keys:        keys,
		templates:   templates,
		renewal:     renewal,
		logger:      slog.Default(),
		tracer:      otel.Tracer("domopass/key"),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register subscribes the synchronizer to the signals it reconciles on.
func (s *Synchronizer) Register(b *bus.Bus) {
	b.Subscribe(propagation.SignalAttributesChanged, s.HandleAttributesChanged)
	b.Subscribe(propagation.SignalCarsChanged, s.HandleCarsChanged)
}

// HandleAttributesChanged upserts every changed payload item into each
// resolved key and submits a renewal per updated key. Per-key failures come
// back as one aggregated HandlerFailure after the whole batch has run.
func (s *Synchronizer) HandleAttributesChanged(ctx context.Context, event bus.Event) error {
	e, ok := event.(propagation.AttributesChanged)
	if !ok {
		return dErrors.Newf(dErrors.CodeInternal, "unexpected event type %T on signal %s", event, event.Signal())
	}

	ctx, span := s.tracer.Start(ctx, "key.HandleAttributesChanged",
		trace.WithAttributes(attribute.String("company.id", e.CompanyID.String())),
	)
	defer span.End()
	start := time.Now()

	keys, err := s.resolve(ctx, e.Base)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve keys")
	}

	items := payloadItems(e.Changes)
	syncErr := s.forEachKey(ctx, "attributes", keys, func(ctx context.Context, key *models.CompositeKey) error {
		payload := key.Payload.Clone()
		for _, item := range items {
			payload.Upsert(item)
		}
		if err := s.keys.UpdatePayload(ctx, key.ID, payload); err != nil {
			return fmt.Errorf("update payload of key %s: %w", key.ID.String(), err)
		}
		if err := s.renewal.Submit(ctx, key.OwnerID, key.ID); err != nil {
			return fmt.Errorf("renew key %s: %w", key.ID.String(), err)
		}
		if s.metrics != nil {
			s.metrics.IncrementRenewals()
		}
		return nil
	})

	if s.metrics != nil {
		s.metrics.ObserveSync("attributes", start)
	}
	return syncErr
}

// HandleCarsChanged applies the car diff to keys that are both
// parking-enabled by template and already provisioned with a car list. A key
// never provisioned for cars is left untouched.
func (s *Synchronizer) HandleCarsChanged(ctx context.Context, event bus.Event) error {
	e, ok := event.(propagation.CarsChanged)
	if !ok {
		return dErrors.Newf(dErrors.CodeInternal, "unexpected event type %T on signal %s", event, event.Signal())
	}

	ctx, span := s.tracer.Start(ctx, "key.HandleCarsChanged",
		trace.WithAttributes(attribute.String("company.id", e.CompanyID.String())),
	)
	defer span.End()
	start := time.Now()

	keys, err := s.resolve(ctx, e.Base)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve keys")
	}

	parkingTemplates, err := s.parkingTemplates(ctx, e.PerimeterIDs)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve templates")
	}

	eligible := make([]*models.CompositeKey, 0, len(keys))
	for _, key := range keys {
		if _, parking := parkingTemplates[key.TemplateID]; !parking {
			continue
		}
		if _, provisioned := key.Payload.Find(models.PayloadCars); !provisioned {
			continue
		}
		eligible = append(eligible, key)
	}

	syncErr := s.forEachKey(ctx, "cars", eligible, func(ctx context.Context, key *models.CompositeKey) error {
		item, _ := key.Payload.Find(models.PayloadCars)
		patched := abonentmodels.PatchCarList(item.List, e.Changes)

		payload := key.Payload.Clone()
		payload.Upsert(models.PayloadItem{Kind: models.PayloadCars, List: patched})
		if err := s.keys.UpdatePayload(ctx, key.ID, payload); err != nil {
			return fmt.Errorf("update payload of key %s: %w", key.ID.String(), err)
		}
		return nil
	})

	if s.metrics != nil {
		s.metrics.ObserveSync("cars", start)
	}
	return syncErr
}

// resolve lists the keys affected by a mutation: the linked user's own keys
// of a synchronized kind whose template is bound to one of the touched
// perimeters, plus member keys derived from them, deduplicated by key id.
func (s *Synchronizer) resolve(ctx context.Context, base propagation.Base) ([]*models.CompositeKey, error) {
	userID, linked := base.User.Get()
	if !linked {
		return nil, nil
	}

	templates, err := s.templates.FindByPerimeters(ctx, base.PerimeterIDs)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	templateSet := make(map[id.TemplateID]struct{}, len(templates))
	for _, t := range templates {
		templateSet[t.ID] = struct{}{}
	}

	all, err := s.keys.ListByOwner(ctx, base.CompanyID, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned keys: %w", err)
	}

	owned := make([]*models.CompositeKey, 0, len(all))
	ownedIDs := make([]id.KeyID, 0, len(all))
	for _, key := range all {
		if key.CompanyID != base.CompanyID || !key.Kind.Synchronized() {
			continue
		}
		if _, ok := templateSet[key.TemplateID]; !ok {
			continue
		}
		owned = append(owned, key)
		ownedIDs = append(ownedIDs, key.ID)
	}

	members, err := s.keys.ListMembers(ctx, ownedIDs)
	if err != nil {
		return nil, fmt.Errorf("list member keys: %w", err)
	}

	seen := make(map[id.KeyID]struct{}, len(owned)+len(members))
	union := make([]*models.CompositeKey, 0, len(owned)+len(members))
	for _, key := range append(owned, members...) {
		if _, dup := seen[key.ID]; dup {
			continue
		}
		seen[key.ID] = struct{}{}
		union = append(union, key)
	}
	return union, nil
}

func (s *Synchronizer) parkingTemplates(ctx context.Context, perimeterIDs []id.PerimeterID) (map[id.TemplateID]struct{}, error) {
	templates, err := s.templates.FindByPerimeters(ctx, perimeterIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[id.TemplateID]struct{})
	for _, t := range templates {
		if t.ParkingEnabled {
			out[t.ID] = struct{}{}
		}
	}
	return out, nil
}

// forEachKey runs fn over the batch with bounded concurrency. Per-key
// failures are isolated so the batch always runs to completion; collected
// failures are returned as a single HandlerFailure result.
func (s *Synchronizer) forEachKey(ctx context.Context, trigger string, keys []*models.CompositeKey, fn func(ctx context.Context, key *models.CompositeKey) error) error {
	var (
		mu  sync.Mutex
		agg dErrors.Aggregate
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for _, key := range keys {
		group.Go(func() error {
			if err := fn(groupCtx, key); err != nil {
				mu.Lock()
				agg.Add(err)
				mu.Unlock()
				if s.metrics != nil {
					s.metrics.IncrementItemFailures(trigger)
				}
				return nil
			}
			if s.metrics != nil {
				s.metrics.IncrementSynced(trigger)
			}
			return nil
		})
	}
	_ = group.Wait()

	if agg.Count() > 0 {
		s.logger.WarnContext(ctx, "key synchronization batch had failures",
			"trigger", trigger,
			"failed", agg.Count(),
			"total", len(keys),
			"error", agg.Err(),
		)
		return dErrors.Wrap(agg.Err(), dErrors.CodeHandlerFailure, "key synchronization incomplete")
	}
	return nil
}

func payloadItems(changes []abonentmodels.AttributeChange) []models.PayloadItem {
	items := make([]models.PayloadItem, 0, len(changes))
	for _, change := range changes {
		switch change.Field {
		case abonentmodels.FieldDisplayName:
			items = append(items, models.PayloadItem{Kind: models.PayloadDisplayName, Text: change.Name})
		case abonentmodels.FieldCategories:
			items = append(items, models.PayloadItem{Kind: models.PayloadCategories, List: change.Categories})
		}
	}
	return items
}

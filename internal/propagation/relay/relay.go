// Package relay forwards propagation events to Kafka so out-of-process
// consumers (intercom firmware gateways, billing) observe the same mutations
// as in-process subscribers.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"domopass/internal/propagation"
	id "domopass/pkg/domain"
	"domopass/pkg/platform/bus"
	"domopass/pkg/requestcontext"
)

// Producer publishes one keyed message. Satisfied by the Kafka producer.
type Producer interface {
	Produce(ctx context.Context, key string, value []byte) error
}

// Relay is a bus subscriber that serializes events into a stable wire
// envelope and publishes them keyed by company id, so one company's events
// stay ordered within a partition.
type Relay struct {
	producer Producer
	logger   *slog.Logger
}

// New constructs a Relay.
func New(producer Producer, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{producer: producer, logger: logger}
}

// Subscribe registers the relay for every propagation signal.
func (r *Relay) Subscribe(b *bus.Bus) {
	signals := []string{
		propagation.SignalPerimetersAdded,
		propagation.SignalPerimetersRemoved,
		propagation.SignalPerimetersTariffChanged,
		propagation.SignalTemporaryPerimetersAdded,
		propagation.SignalCarsChanged,
		propagation.SignalAttributesChanged,
	}
	for _, signal := range signals {
		b.Subscribe(signal, r.Handle)
	}
}

// envelope is the wire format. Ids travel as canonical uuid strings.
type envelope struct {
	Signal       string            `json:"signal"`
	RequestID    string            `json:"request_id,omitempty"`
	CompanyID    string            `json:"company_id"`
	UserID       string            `json:"user_id,omitempty"`
	PerimeterIDs []string          `json:"perimeter_ids,omitempty"`
	Grants       []grantPayload    `json:"grants,omitempty"`
	Cars         *carsPayload      `json:"cars,omitempty"`
	Attributes   []attributeChange `json:"attributes,omitempty"`
	Snapshot     *snapshotPayload  `json:"snapshot,omitempty"`
}

type grantPayload struct {
	PerimeterID  string `json:"perimeter_id"`
	TariffPlanID string `json:"tariff_plan_id"`
}

type carsPayload struct {
	Added   []string `json:"added,omitempty"`
	Deleted []string `json:"deleted,omitempty"`
}

type attributeChange struct {
	Field      string   `json:"field"`
	Name       string   `json:"name,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

type snapshotPayload struct {
	DisplayName string   `json:"display_name"`
	Categories  []string `json:"categories,omitempty"`
}

// Handle serializes and publishes a single event.
func (r *Relay) Handle(ctx context.Context, event bus.Event) error {
	env, err := r.envelope(ctx, event)
	if err != nil {
		return err
	}

	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}
	if err := r.producer.Produce(ctx, env.CompanyID, value); err != nil {
		return fmt.Errorf("publish %s: %w", env.Signal, err)
	}
	return nil
}

func (r *Relay) envelope(ctx context.Context, event bus.Event) (envelope, error) {
	env := envelope{
		Signal:    event.Signal(),
		RequestID: requestcontext.RequestID(ctx),
	}

	fill := func(base propagation.Base) {
		env.CompanyID = base.CompanyID.String()
		if userID, ok := base.User.Get(); ok {
			env.UserID = userID.String()
		}
		env.PerimeterIDs = perimeterStrings(base.PerimeterIDs)
	}

	switch e := event.(type) {
	case propagation.PerimetersAdded:
		fill(e.Base)
		for _, g := range e.Grants {
			env.Grants = append(env.Grants, grantPayload{
				PerimeterID:  g.PerimeterID.String(),
				TariffPlanID: g.TariffPlanID.String(),
			})
		}
		env.Snapshot = snapshotOf(e.Snapshot)
	case propagation.PerimetersRemoved:
		fill(e.Base)
	case propagation.PerimetersTariffChanged:
		fill(e.Base)
		for _, g := range e.Changed {
			env.Grants = append(env.Grants, grantPayload{
				PerimeterID:  g.PerimeterID.String(),
				TariffPlanID: g.TariffPlanID.String(),
			})
		}
	case propagation.TemporaryPerimetersAdded:
		fill(e.Base)
		env.Snapshot = snapshotOf(e.Snapshot)
	case propagation.CarsChanged:
		fill(e.Base)
		env.Cars = &carsPayload{Added: e.Changes.Added, Deleted: e.Changes.Deleted}
	case propagation.AttributesChanged:
		fill(e.Base)
		for _, c := range e.Changes {
			env.Attributes = append(env.Attributes, attributeChange{
				Field:      string(c.Field),
				Name:       c.Name,
				Categories: c.Categories,
			})
		}
		env.Snapshot = snapshotOf(e.Snapshot)
	default:
		return envelope{}, fmt.Errorf("unexpected event type %T for signal %s", event, event.Signal())
	}
	return env, nil
}

func perimeterStrings(ids []id.PerimeterID) []string {
	out := make([]string, len(ids))
	for i, perimeterID := range ids {
		out[i] = perimeterID.String()
	}
	return out
}

func snapshotOf(s propagation.Snapshot) *snapshotPayload {
	if s.DisplayName == "" && len(s.Categories) == 0 {
		return nil
	}
	return &snapshotPayload{DisplayName: s.DisplayName, Categories: s.Categories}
}

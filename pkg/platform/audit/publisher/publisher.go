// Package publisher delivers audit events to a store, synchronously or
// through a buffered background worker. Persistence is best-effort: a
// failing sink trips a circuit breaker and events degrade to log lines
// instead of blocking admin operations.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	id "domopass/pkg/domain"
	audit "domopass/pkg/platform/audit"
	"domopass/pkg/platform/circuit"
	"domopass/pkg/requestcontext"
)

// ErrBufferFull is returned when the async buffer cannot accept more events.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher writes audit events to a store.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	breaker *circuit.Breaker

	inbox chan audit.Event
	done  chan struct{}
	once  sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with a
// buffered inbox of the given size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

// WithLogger sets the logger used for fallback sink output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher constructs a publisher around the given store. Without
// options it persists synchronously on Emit.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:   store,
		logger:  slog.Default(),
		breaker: circuit.New("audit-store", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.inbox != nil {
		p.done = make(chan struct{})
		go p.run()
	}
	return p
}

// Emit records an audit event. In async mode the event is queued; a
// full buffer drops the event with an error rather than blocking.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}

	if p.inbox == nil {
		return p.persist(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// List returns the stored audit trail for a company.
func (p *Publisher) List(ctx context.Context, companyID id.CompanyID) ([]audit.Event, error) {
	return p.store.ListByCompany(ctx, companyID)
}

// Close drains queued events and stops the background worker. Safe to
// call multiple times.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			<-p.done
		}
	})
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.persist(context.Background(), event); err != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"company_id", event.CompanyID,
				"error", err,
			)
		}
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	err := p.store.Append(ctx, event)
	if err == nil {
		if _, change := p.breaker.RecordSuccess(); change.Closed {
			p.logger.Info("audit store recovered, circuit closed")
		}
		return nil
	}

	useFallback, change := p.breaker.RecordFailure()
	if change.Opened {
		p.logger.Warn("audit store failing, circuit opened", "error", err)
	}
	if useFallback {
		// Degrade to the log sink so the trail is not silently lost.
		p.logger.Error("audit event diverted to log sink",
			"action", event.Action,
			"company_id", event.CompanyID,
			"operator", event.Operator,
			"entity", event.Entity,
			"entity_id", event.EntityID,
			"request_id", event.RequestID,
		)
		return nil
	}
	return err
}

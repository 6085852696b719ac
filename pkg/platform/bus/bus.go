// Package bus implements the in-process event bus used to fan mutation
// events out to subscribers.
//
// Signals are plain names; each signal has an ordered list of handlers. The
// bus is owned and populated by the composition root at startup and is not
// mutated afterwards, so Dispatch takes no locks.
package bus

import (
	"context"
	"log/slog"

	dErrors "domopass/pkg/domain-errors"
)

// Event is anything dispatchable: it names its signal so the bus can route
// without reflection.
type Event interface {
	Signal() string
}

// Handler processes a single event. Handlers must type-assert the concrete
// event for their signal.
type Handler func(ctx context.Context, event Event) error

// Bus dispatches events to subscribed handlers.
type Bus struct {
	handlers map[string][]Handler
	logger   *slog.Logger
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe appends a handler to the signal's ordered handler list.
// Not safe for use after Dispatch traffic has started.
func (b *Bus) Subscribe(signal string, handler Handler) {
	b.handlers[signal] = append(b.handlers[signal], handler)
}

// Dispatch invokes every handler registered for the event's signal. Every
// handler runs regardless of earlier failures; the combined result is an
// error iff at least one handler failed, carrying all collected reasons.
//
// A signal with no subscribers is not an error: the event is dropped with a
// debug log, matching the catalog of subscribers being a deployment concern.
func (b *Bus) Dispatch(ctx context.Context, event Event) error {
	handlers, ok := b.handlers[event.Signal()]
	if !ok || len(handlers) == 0 {
		b.logger.DebugContext(ctx, "no handlers for signal, dropping event",
			"signal", event.Signal(),
		)
		return nil
	}

	var agg dErrors.Aggregate
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.ErrorContext(ctx, "event handler failed",
				"signal", event.Signal(),
				"error", err,
			)
			agg.Add(err)
		}
	}
	if agg.Count() > 0 {
		return dErrors.Wrap(agg.Err(), dErrors.CodeHandlerFailure, "event handlers failed")
	}
	return nil
}

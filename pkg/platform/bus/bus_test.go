package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "domopass/pkg/domain-errors"
)

type testEvent struct{ signal string }

func (e testEvent) Signal() string { return e.signal }

func TestDispatchRunsAllHandlers(t *testing.T) {
	b := New(nil)

	var calls []string
	b.Subscribe("abonent.updated", func(ctx context.Context, event Event) error {
		calls = append(calls, "first")
		return nil
	})
	b.Subscribe("abonent.updated", func(ctx context.Context, event Event) error {
		calls = append(calls, "second")
		return nil
	})

	err := b.Dispatch(context.Background(), testEvent{signal: "abonent.updated"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatchDoesNotShortCircuit(t *testing.T) {
	b := New(nil)

	var calls int
	b.Subscribe("abonent.updated", func(ctx context.Context, event Event) error {
		calls++
		return errors.New("first failed")
	})
	b.Subscribe("abonent.updated", func(ctx context.Context, event Event) error {
		calls++
		return nil
	})
	b.Subscribe("abonent.updated", func(ctx context.Context, event Event) error {
		calls++
		return errors.New("third failed")
	})

	err := b.Dispatch(context.Background(), testEvent{signal: "abonent.updated"})
	require.Error(t, err)
	assert.Equal(t, 3, calls, "a failing handler must not stop the rest")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeHandlerFailure))
	assert.Contains(t, err.Error(), "first failed")
	assert.Contains(t, err.Error(), "third failed")
}

func TestDispatchSucceedsWhenAllHandlersSucceed(t *testing.T) {
	b := New(nil)
	b.Subscribe("abonent.registered", func(ctx context.Context, event Event) error {
		return nil
	})

	err := b.Dispatch(context.Background(), testEvent{signal: "abonent.registered"})
	assert.NoError(t, err)
}

func TestDispatchWithoutSubscribersDropsEvent(t *testing.T) {
	b := New(nil)

	err := b.Dispatch(context.Background(), testEvent{signal: "abonent.removed"})
	assert.NoError(t, err)
}

func TestDispatchRoutesBySignal(t *testing.T) {
	b := New(nil)

	var updated, removed int
	b.Subscribe("abonent.updated", func(ctx context.Context, event Event) error {
		updated++
		return nil
	})
	b.Subscribe("abonent.removed", func(ctx context.Context, event Event) error {
		removed++
		return nil
	})

	require.NoError(t, b.Dispatch(context.Background(), testEvent{signal: "abonent.removed"}))
	assert.Zero(t, updated)
	assert.Equal(t, 1, removed)
}

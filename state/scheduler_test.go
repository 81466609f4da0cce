package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T) (*Env, chan func(*State) error) {
	t.Helper()
	ctx, cancel := context.WithCancelCause(context.Background())
	t.Cleanup(func() { cancel(context.Canceled) })
	dispatch := make(chan func(*State) error, 16)
	return &Env{
		DispatchChannel: dispatch,
		Context:         ctx,
		Cancel:          cancel,
		Log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:           &ManualClock{},
	}, dispatch
}

func TestDispatch(t *testing.T) {
	env, dispatch := testEnv(t)

	ran := false
	env.Dispatch(func(s *State) error {
		ran = true
		return nil
	})

	fun := <-dispatch
	require.NoError(t, fun(nil))
	assert.True(t, ran)
}

func TestDispatchWait(t *testing.T) {
	env, dispatch := testEnv(t)

	go func() {
		fun := <-dispatch
		_ = fun(&State{Env: env})
	}()

	res, err := env.DispatchWait(func(s *State) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, res)
}

func TestDispatchWaitCancelled(t *testing.T) {
	env, _ := testEnv(t)
	env.Cancel(errors.New("stop"))

	// nothing drains the channel, so only cancellation can unblock us
	_, err := env.DispatchWait(func(s *State) (any, error) {
		return nil, nil
	})
	assert.Error(t, err)
}

func TestScheduleTask(t *testing.T) {
	env, dispatch := testEnv(t)

	env.ScheduleTask(func(s *State) error { return nil }, 10*time.Millisecond)
	assert.Empty(t, dispatch)

	select {
	case <-dispatch:
	case <-time.After(time.Second):
		t.Fatal("scheduled task never fired")
	}
}

func TestRepeatTask(t *testing.T) {
	env, dispatch := testEnv(t)

	env.RepeatTask(func(s *State) error { return nil }, 5*time.Millisecond)

	for i := 0; i < 3; i++ {
		select {
		case <-dispatch:
		case <-time.After(time.Second):
			t.Fatalf("repeat task stopped after %d runs", i)
		}
	}
	env.Cancel(context.Canceled)
}

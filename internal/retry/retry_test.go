package retry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"internflow-engine/internal/domain"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = fmt.Errorf("dial: %w", domain.ErrUnavailable)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32
	var backoffs []time.Duration

	p := Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     3 * time.Second,
		Clock:          clock,
		OnRetry:        func(_ int, _ error, b time.Duration) { backoffs = append(backoffs, b) },
	}

	done := make(chan struct{})
	var got string
	var err error
	go func() {
		defer close(done)
		got, err = Do(context.Background(), p, Transient, func(context.Context) (string, error) {
			if calls.Add(1) < 4 {
				return "", errDown
			}
			return "ok", nil
		})
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
		clock.Advance(10 * time.Second)
	}
	<-done

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, backoffs)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	boom := errors.New("bad dsn")
	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 5, Clock: clockwork.NewFakeClock()}, Transient,
		func(context.Context) (int, error) {
			calls++
			return 0, boom
		})

	var perm *PermanentError
	require.ErrorAs(t, err, &perm)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	done := make(chan error, 1)
	go func() {
		_, err := Do(context.Background(), Policy{MaxAttempts: 2, InitialBackoff: time.Second, Clock: clock}, Transient,
			func(context.Context) (int, error) { return 0, errDown })
		done <- err
	}()
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(time.Second)

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, Policy{MaxAttempts: 3, InitialBackoff: time.Hour, Clock: clockwork.NewFakeClock()}, Transient,
		func(context.Context) (int, error) { return 0, errDown })
	assert.ErrorIs(t, err, context.Canceled)
}

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery_RunsImmediatelyThenOnTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int32
	ran := make(chan struct{}, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		Every(ctx, clock, time.Minute, "test", func(context.Context) error {
			runs.Add(1)
			ran <- struct{}{}
			return errors.New("logged, not fatal")
		})
	}()

	<-ran
	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Minute)
		<-ran
	}

	cancel()
	<-done
	assert.Equal(t, int32(3), runs.Load())
}

func TestEveryInterval_PicksUpChangedPeriod(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var period atomic.Int64
	period.Store(int64(time.Minute))
	ran := make(chan struct{}, 10)
	go EveryInterval(ctx, clock, func() time.Duration { return time.Duration(period.Load()) }, nil, "test",
		func(context.Context) error {
			ran <- struct{}{}
			return nil
		})

	<-ran
	period.Store(int64(time.Hour))
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)
	<-ran

	// the ticker now fires hourly
	clock.Advance(59 * time.Minute)
	assert.Never(t, func() bool { return len(ran) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	clock.Advance(time.Minute)
	<-ran
}

func TestEveryInterval_PausedWhileNonPositive(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var period atomic.Int64
	wake := make(chan struct{})
	ran := make(chan struct{}, 10)
	go EveryInterval(ctx, clock, func() time.Duration { return time.Duration(period.Load()) }, wake, "test",
		func(context.Context) error {
			ran <- struct{}{}
			return nil
		})

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Hour)
	assert.Never(t, func() bool { return len(ran) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	period.Store(int64(time.Minute))
	wake <- struct{}{}
	// the wake is handled once the loop selects again
	wake <- struct{}{}
	clock.Advance(time.Minute)
	<-ran
}

package followup

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_DueExactlyAfterInterval(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	p := DefaultPolicy()

	t0 := clock.Now()
	next := p.NextDue(t0, 0)
	require.NotNil(t, next)
	assert.Equal(t, t0.Add(7*24*time.Hour), *next)

	s := State{NextDue: next}

	clock.Advance(6 * 24 * time.Hour)
	assert.Equal(t, NotDue, p.Evaluate(s, clock.Now()))

	clock.Advance(24 * time.Hour)
	assert.Equal(t, Due, p.Evaluate(s, clock.Now()))
}

func TestEvaluate_ExhaustedRegardlessOfDate(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)
	p := DefaultPolicy()

	assert.Equal(t, Exhausted, p.Evaluate(State{FollowUpCount: 3, NextDue: &future}, now))
	assert.Equal(t, Exhausted, p.Evaluate(State{FollowUpCount: 3, NextDue: &past}, now))
	assert.Equal(t, Exhausted, p.Evaluate(State{FollowUpCount: 4}, now))
}

func TestEvaluate_RespondedIsNeverDue(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	assert.Equal(t, NotDue, DefaultPolicy().Evaluate(State{Responded: true, NextDue: &past}, now))
}

func TestEvaluate_NilDueDate(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, NotDue, DefaultPolicy().Evaluate(State{FollowUpCount: 1}, now))
}

func TestNextDue_NilAtCap(t *testing.T) {
	p := Policy{Interval: 48 * time.Hour, MaxFollowUps: 2}
	from := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	next := p.NextDue(from, 1)
	require.NotNil(t, next)
	assert.Equal(t, from.Add(48*time.Hour), *next)
	assert.Nil(t, p.NextDue(from, 2))
}

func TestNormalize_FillsDefaults(t *testing.T) {
	p := Policy{}.Normalize()
	assert.Equal(t, DefaultInterval, p.Interval)
	assert.Equal(t, DefaultMaxFollowUps, p.MaxFollowUps)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"internflow-engine/internal/config"
	"internflow-engine/internal/domain"
	"internflow-engine/internal/events"
	"internflow-engine/internal/poll"
	"internflow-engine/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnce(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClock()

	cfg := config.Default()
	db, err := openStore(ctx, cfg, dir, clock, log)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	st := store.NewStore(db, cfg.FollowUpPolicy(), clock)
	eng, err := newEngine(cfg, st, events.NewHub(clock), dir, clock, log)
	require.NoError(t, err)
	runner := newScrapeRunner(cfg, st, log)

	var buf bytes.Buffer
	require.NoError(t, runOnce(ctx, &buf, "report", eng, runner))
	var rep domain.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
	assert.Zero(t, rep.Statistics.Total)

	buf.Reset()
	require.NoError(t, runOnce(ctx, &buf, "cycle", eng, runner))
	assert.Contains(t, buf.String(), `"cycleId"`)

	err = runOnce(ctx, &buf, "bogus", eng, runner)
	assert.ErrorContains(t, err, "unknown -once operation")
}

func TestNewClassifier(t *testing.T) {
	cfg := config.Default()
	_, ok := newClassifier(cfg).(interface{ Label(string) domain.Sentiment })
	assert.True(t, ok, "keyword classifier without an endpoint")

	cfg.Sentiment.Endpoint = "http://127.0.0.1:9/classify"
	_, ok = newClassifier(cfg).(interface{ Label(string) domain.Sentiment })
	assert.False(t, ok)
}

func TestLiveConfigApply(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClock()

	cfg := config.Default()
	db, err := openStore(ctx, cfg, dir, clock, log)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	st := store.NewStore(db, cfg.FollowUpPolicy(), clock)
	eng, err := newEngine(cfg, st, events.NewHub(clock), dir, clock, log)
	require.NoError(t, err)
	runner := newScrapeRunner(cfg, st, log)
	assert.Nil(t, eng.Settings().Mailbox)

	next := cfg
	next.FollowUp.IntervalDays = 3
	next.FollowUp.MaxFollowUps = 5
	next.Email.Enabled = true
	next.Email.Username = "me@example.com"
	next.Email.MaxMessages = 7
	next.Scrape.SearchURLs = []string{"https://www.linkedin.com/jobs/search?keywords=intern"}
	next.Scrape.MaxPerSource = 4

	live := liveConfig{store: st, engine: eng, runner: runner, jobs: []*poll.Tracker{
		poll.NewTracker("cycle", "", func(context.Context) (any, error) { return nil, nil }, clock, nil, log),
	}, clock: clock, log: log}
	live.apply(next)

	assert.Equal(t, 3*24*time.Hour, st.Policy().Interval)
	assert.Equal(t, 5, st.Policy().MaxFollowUps)
	set := eng.Settings()
	assert.NotNil(t, set.Mailbox)
	assert.Equal(t, 7, set.BatchSize)
	assert.Equal(t, 5, set.Policy.MaxFollowUps)
	assert.Equal(t, next.Scrape.SearchURLs, runner.Config().SearchURLs)
	assert.Equal(t, 4, runner.Config().MaxPerSource)
}

func TestScrapeIntervalFollowsEnabled(t *testing.T) {
	var cfgVal atomic.Value
	cfg := config.Default()
	cfgVal.Store(cfg)
	assert.Zero(t, scrapeInterval(&cfgVal)())

	cfg.Scrape.Enabled = true
	cfgVal.Store(cfg)
	assert.Equal(t, 360*time.Minute, scrapeInterval(&cfgVal)())
	assert.Equal(t, 300*time.Second, cycleInterval(&cfgVal)())
}

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"internflow-engine/internal/config"
	"internflow-engine/internal/events"
	"internflow-engine/internal/lifecycle"
	"internflow-engine/internal/mailbox"
	"internflow-engine/internal/poll"
	"internflow-engine/internal/retry"
	"internflow-engine/internal/scheduler"
	"internflow-engine/internal/scrape"
	"internflow-engine/internal/secrets"
	"internflow-engine/internal/sentiment"
	"internflow-engine/internal/store"

	"github.com/jonboulle/clockwork"
)

// openStore connects with backoff; a Postgres container that is still
// starting is the usual reason for the first attempts to fail.
func openStore(ctx context.Context, cfg config.Config, dataDir string, clock clockwork.Clock, log *slog.Logger) (*store.DB, error) {
	dsn := cfg.Database.DSN
	if cfg.Database.Driver == store.DriverSQLite && !filepath.IsAbs(dsn) {
		dsn = filepath.Join(dataDir, dsn)
	}

	p := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		Clock:          clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			log.Warn("database not ready, retrying", "attempt", attempt, "backoff", backoff, "err", err)
		},
	}
	db, err := retry.Do(ctx, p, retry.Transient, func(ctx context.Context) (*store.DB, error) {
		return store.Open(ctx, cfg.Database.Driver, dsn)
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	return db, nil
}

func newClassifier(cfg config.Config) sentiment.Classifier {
	if cfg.Sentiment.Endpoint != "" {
		return sentiment.NewHTTPClassifier(cfg.Sentiment.Endpoint, time.Duration(cfg.Sentiment.TimeoutSeconds)*time.Second)
	}
	return sentiment.NewKeywordClassifier(cfg.Sentiment.Positive, cfg.Sentiment.Negative)
}

// engineSettings builds the reconfigurable part of the engine from cfg.
func engineSettings(cfg config.Config, clock clockwork.Clock, log *slog.Logger) lifecycle.Settings {
	set := lifecycle.Settings{
		Classifier:   newClassifier(cfg),
		Policy:       cfg.FollowUpPolicy(),
		BatchSize:    cfg.Email.MaxMessages,
		FetchTimeout: cfg.PollTimeout(),
	}
	if cfg.Email.Enabled {
		set.Mailbox = mailbox.NewIMAP(mailbox.IMAPConfig{
			Host:         cfg.Email.IMAPHost,
			Port:         cfg.Email.IMAPPort,
			Username:     cfg.Email.Username,
			Mailbox:      cfg.Email.Mailbox,
			LookbackDays: cfg.Email.LookbackDays,
			Password:     secrets.IMAPPasswordSource(cfg),
		}, clock, log)
	} else {
		log.Info("email polling disabled; cycles only work the follow-up queue")
	}
	return set
}

func newEngine(cfg config.Config, st *store.Store, hub *events.Hub, dataDir string, clock clockwork.Clock, log *slog.Logger) (*lifecycle.Engine, error) {
	lock, err := lifecycle.NewCycleLock(filepath.Join(dataDir, "cycle.lock"))
	if err != nil {
		return nil, err
	}

	set := engineSettings(cfg, clock, log)
	return lifecycle.New(st, lifecycle.Options{
		Mailbox:      set.Mailbox,
		Classifier:   set.Classifier,
		Notifier:     hub,
		Policy:       set.Policy,
		Lock:         lock,
		Clock:        clock,
		Log:          log,
		BatchSize:    set.BatchSize,
		FetchTimeout: set.FetchTimeout,
	}), nil
}

func scrapeConfig(cfg config.Config) scrape.Config {
	return scrape.Config{
		SearchURLs:        cfg.Scrape.SearchURLs,
		MaxPerSource:      cfg.Scrape.MaxPerSource,
		RequestsPerSecond: cfg.Scrape.RequestsPerSecond,
	}
}

func newScrapeRunner(cfg config.Config, st *store.Store, log *slog.Logger) *scrape.Runner {
	return scrape.NewRunner(scrapeConfig(cfg), st, nil, log)
}

// liveConfig applies a saved config to the running components. Settings
// read only at startup (port, database, logging) are left alone.
type liveConfig struct {
	store  *store.Store
	engine *lifecycle.Engine
	runner *scrape.Runner
	jobs   []*poll.Tracker
	clock  clockwork.Clock
	log    *slog.Logger
}

func (l liveConfig) apply(cfg config.Config) {
	l.store.SetPolicy(cfg.FollowUpPolicy())
	l.engine.Reconfigure(engineSettings(cfg, l.clock, l.log))
	l.runner.Reconfigure(scrapeConfig(cfg))
	for _, j := range l.jobs {
		j.Reschedule()
	}
	l.log.Info("config applied",
		"email", cfg.Email.Enabled,
		"scrape", cfg.Scrape.Enabled,
		"cycle_interval", cfg.CycleInterval(),
	)
}

// intervals read the live config on every tick.
func cycleInterval(cfgVal *atomic.Value) scheduler.Interval {
	return func() time.Duration { return cfgVal.Load().(config.Config).CycleInterval() }
}

func scrapeInterval(cfgVal *atomic.Value) scheduler.Interval {
	return func() time.Duration {
		cfg := cfgVal.Load().(config.Config)
		if !cfg.Scrape.Enabled {
			return 0
		}
		return cfg.ScrapeInterval()
	}
}

// runOnce runs a single operation and writes its result as JSON.
func runOnce(ctx context.Context, w io.Writer, op string, eng *lifecycle.Engine, runner *scrape.Runner) error {
	var (
		out any
		err error
	)
	switch op {
	case "cycle":
		out, err = eng.RunCycle(ctx)
	case "followups":
		out, err = eng.FollowUpQueue(ctx)
	case "report":
		out, err = eng.Report(ctx)
	case "scrape":
		out, err = runner.Run(ctx)
	default:
		return fmt.Errorf("unknown -once operation %q (want cycle, followups, report or scrape)", op)
	}
	if out != nil {
		if werr := writeJSON(w, out); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

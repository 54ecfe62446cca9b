package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"internflow-engine/internal/config"
	"internflow-engine/internal/events"
	"internflow-engine/internal/httpapi"
	"internflow-engine/internal/logging"
	"internflow-engine/internal/poll"
	"internflow-engine/internal/store"

	"github.com/jonboulle/clockwork"
)

func main() {
	once := flag.String("once", "", "run one operation, print JSON and exit: cycle|followups|report|scrape")
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	flag.Parse()

	if err := run(*once, *envFile); err != nil {
		slog.Error("engine failed", "err", err)
		os.Exit(1)
	}
}

func run(once, envFile string) error {
	envv, err := config.LoadEnv(envFile)
	if err != nil {
		return err
	}

	// Engine data dir: use env if provided (a desktop shell can pass one), else local folder.
	dataDir := envv.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		return fmt.Errorf("config bootstrap failed: %w", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		cfg, vr := config.NormalizeAndValidate(envv.Apply(cfg))
		if !vr.OK() {
			return cfg, fmt.Errorf("invalid config %s: %v", userCfgPath, vr.Errors)
		}
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	log := logging.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if _, vr := config.NormalizeAndValidate(cfg); len(vr.Warnings) > 0 {
		log.Warn("config warnings", "path", userCfgPath, "warnings", vr.Warnings)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	db, err := openStore(ctx, cfg, dataDir, clock, log)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	st := store.NewStore(db, cfg.FollowUpPolicy(), clock)
	hub := events.NewHub(clock)

	eng, err := newEngine(cfg, st, hub, dataDir, clock, log)
	if err != nil {
		return err
	}
	runner := newScrapeRunner(cfg, st, log)

	if once != "" {
		return runOnce(ctx, os.Stdout, once, eng, runner)
	}

	cycle := poll.NewTracker("cycle", events.TypeCycleFinished, func(ctx context.Context) (any, error) {
		return eng.RunCycle(ctx)
	}, clock, hub, log)
	scrapeJob := poll.NewTracker("scrape", events.TypeJobsScraped, func(ctx context.Context) (any, error) {
		return runner.Run(ctx)
	}, clock, hub, log)

	cycle.Start(ctx, cycleInterval(&cfgVal))
	scrapeJob.Start(ctx, scrapeInterval(&cfgVal))
	live := liveConfig{store: st, engine: eng, runner: runner, jobs: []*poll.Tracker{cycle, scrapeJob}, clock: clock, log: log}

	mux := httpapi.NewMux(httpapi.Deps{
		Store:         st,
		Engine:        eng,
		Hub:           hub,
		Cycle:         cycle,
		Scrape:        scrapeJob,
		CfgVal:        &cfgVal,
		UserCfgPath:   userCfgPath,
		LoadCfg:       loadCfg,
		OnConfigSaved: live.apply,
		Clock:         clock,
		Log:           log,
	})

	token := envv.ShutdownToken
	if token == "" {
		if token, err = randomToken(16); err != nil {
			return err
		}
	}

	// Bind to loopback only; the API has no authentication of its own.
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           httpapi.Handler(mux, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	mux.Handle("/shutdown", httpapi.ShutdownHandler{Token: token, Shutdown: stop})

	// The launcher reads this line to learn the shutdown token.
	fmt.Printf("SHUTDOWN_TOKEN=%s\n", token)
	log.Info("engine listening", "addr", "http://"+addr, "driver", db.Driver(), "config", userCfgPath)

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	if err := db.Checkpoint(sctx); err != nil {
		log.Warn("checkpoint on shutdown", "err", err)
	}
	return nil
}
